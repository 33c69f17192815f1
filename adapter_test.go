package bluefruit

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCentral = MAC{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}

func newTestAdapter(t *testing.T) (*Adapter, *Loopback, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	lb := NewLoopback(16)
	a := NewAdapter(lb, log)
	require.NoError(t, a.Enable())
	t.Cleanup(func() { a.Close() })
	return a, lb, hook
}

func startAdvertising(t *testing.T, a *Adapter) *Advertisement {
	t.Helper()
	adv := a.DefaultAdvertisement()
	require.NoError(t, adv.Configure(AdvertisementOptions{
		LocalName:    "test",
		ServiceUUIDs: []UUID{ServiceUUIDNordicUART},
	}))
	require.NoError(t, adv.Start())
	return adv
}

func TestAddServiceRequiresEnable(t *testing.T) {
	log, _ := test.NewNullLogger()
	a := NewAdapter(NewLoopback(1), log)
	err := a.AddService(&Service{UUID: ServiceUUIDDeviceInformation})
	assert.Equal(t, errNotEnabled, err)
	assert.Equal(t, errNotEnabled, a.SetLocalName("x"))
}

func TestAddServiceAssignsHandles(t *testing.T) {
	a, _, _ := newTestAdapter(t)

	var rx, tx, model Characteristic
	nus := &Service{
		UUID: ServiceUUIDNordicUART,
		Characteristics: []CharacteristicConfig{
			{Handle: &rx, UUID: CharacteristicUUIDUARTRX, Flags: CharacteristicWritePermission},
			{Handle: &tx, UUID: CharacteristicUUIDUARTTX, Flags: CharacteristicNotifyPermission},
		},
	}
	require.NoError(t, a.AddService(nus))
	assert.Equal(t, uint16(1), nus.Handle())
	assert.Equal(t, uint16(3), rx.Handle())
	assert.Equal(t, uint16(5), tx.Handle())
	// tx carries a client configuration descriptor at 6.
	assert.Equal(t, uint16(6), nus.endHandle)

	dis := &Service{
		UUID: ServiceUUIDDeviceInformation,
		Characteristics: []CharacteristicConfig{
			{Handle: &model, UUID: CharacteristicUUIDModelNumberString, Flags: CharacteristicReadPermission},
		},
	}
	require.NoError(t, a.AddService(dis))
	assert.Equal(t, uint16(7), dis.Handle())
	assert.Equal(t, uint16(9), model.Handle())
	assert.Len(t, a.Services(), 2)
}

func TestSetLocalName(t *testing.T) {
	a, lb, _ := newTestAdapter(t)
	require.NoError(t, a.SetLocalName("Adafruit Bluefruit"))
	assert.Equal(t, "Adafruit Bluefruit", lb.LocalName())
}

func TestAdvertisementLifecycle(t *testing.T) {
	a, lb, _ := newTestAdapter(t)
	adv := a.DefaultAdvertisement()
	assert.Same(t, adv, a.DefaultAdvertisement())

	assert.Equal(t, errNotConfigured, adv.Start())
	assert.Equal(t, errNotAdvertising, adv.Stop())

	startAdvertising(t, a)
	opts, active := lb.Advertising()
	assert.True(t, active)
	assert.Equal(t, "test", opts.LocalName)
	assert.Equal(t, errAdvertising, adv.Start())
	assert.Equal(t, errAdvertising, adv.Configure(AdvertisementOptions{}))

	require.NoError(t, adv.Stop())
	_, active = lb.Advertising()
	assert.False(t, active)
	assert.False(t, adv.Active())
}

func TestConnectAndDisconnect(t *testing.T) {
	a, lb, _ := newTestAdapter(t)
	startAdvertising(t, a)

	type event struct {
		conn      Connection
		addr      MAC
		connected bool
	}
	var events []event
	a.SetConnectHandler(func(conn Connection, addr MAC, connected bool) {
		events = append(events, event{conn, addr, connected})
	})

	assert.Equal(t, ConnectionInvalid, a.Connection())
	conn, err := lb.Connect(testCentral)
	require.NoError(t, err)
	assert.Equal(t, conn, a.Connection())
	_, advertising := lb.Advertising()
	assert.False(t, advertising)

	require.NoError(t, lb.Disconnect(conn))
	assert.Equal(t, ConnectionInvalid, a.Connection())
	_, advertising = lb.Advertising()
	assert.True(t, advertising, "advertising resumes after disconnect")

	assert.Equal(t, []event{
		{conn, testCentral, true},
		{conn, testCentral, false},
	}, events)
}

func TestDisconnectUnknownConnection(t *testing.T) {
	a, _, hook := newTestAdapter(t)
	a.HandleDisconnect(42)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "disconnect for unknown connection", hook.LastEntry().Message)
}

func TestAttributePermissions(t *testing.T) {
	a, lb, _ := newTestAdapter(t)

	var written []byte
	var tx Characteristic
	require.NoError(t, a.AddService(&Service{
		UUID: ServiceUUIDNordicUART,
		Characteristics: []CharacteristicConfig{
			{
				UUID:  CharacteristicUUIDUARTRX,
				Flags: CharacteristicWriteWithoutResponsePermission,
				WriteEvent: func(client Connection, offset int, value []byte) {
					written = append(written, value...)
				},
			},
			{
				Handle: &tx,
				UUID:   CharacteristicUUIDUARTTX,
				Value:  []byte("init"),
				Flags:  CharacteristicNotifyPermission | CharacteristicReadPermission,
			},
		},
	}))
	startAdvertising(t, a)
	conn, err := lb.Connect(testCentral)
	require.NoError(t, err)

	require.NoError(t, lb.Write(conn, CharacteristicUUIDUARTRX, []byte("hi")))
	assert.Equal(t, []byte("hi"), written)

	_, err = lb.Read(conn, CharacteristicUUIDUARTRX)
	assert.Equal(t, errNoRead, err)
	assert.Equal(t, errNoWrite, lb.Write(conn, CharacteristicUUIDUARTTX, []byte("x")))

	value, err := lb.Read(conn, CharacteristicUUIDUARTTX)
	require.NoError(t, err)
	assert.Equal(t, []byte("init"), value)

	assert.Equal(t, errUnknownUUID, lb.Write(conn, CharacteristicUUIDModelNumberString, nil))
}

func TestCharacteristicWriteNotifies(t *testing.T) {
	a, lb, _ := newTestAdapter(t)

	var tx Characteristic
	require.NoError(t, a.AddService(&Service{
		UUID: ServiceUUIDNordicUART,
		Characteristics: []CharacteristicConfig{
			{Handle: &tx, UUID: CharacteristicUUIDUARTTX, Flags: CharacteristicNotifyPermission},
		},
	}))

	_, err := tx.Write([]byte("early"))
	assert.Equal(t, errNotConnected, err)

	startAdvertising(t, a)
	conn, err := lb.Connect(testCentral)
	require.NoError(t, err)

	n, err := tx.Write([]byte("value"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []byte("value"), tx.Value())

	select {
	case note := <-lb.Notifications():
		assert.Equal(t, conn, note.Conn)
		assert.Equal(t, tx.Handle(), note.Handle)
		assert.Equal(t, CharacteristicUUIDUARTTX, note.UUID)
		assert.Equal(t, []byte("value"), note.Value)
	default:
		t.Fatal("expected a notification")
	}
}

func TestCharacteristicWithoutAdapter(t *testing.T) {
	var c Characteristic
	assert.Equal(t, errNoNotify, c.Notify(1, []byte("x")))
	_, err := c.Write([]byte("x"))
	assert.Equal(t, errNoWrite, err)
}

func TestLoopbackCentralErrors(t *testing.T) {
	lb := NewLoopback(1)
	_, err := lb.Connect(testCentral)
	assert.Equal(t, errNotAdvertisingLB, err)
	assert.Equal(t, errNotConnected, lb.Disconnect(1))
	assert.Equal(t, errNotConnected, lb.Write(1, CharacteristicUUIDUARTRX, nil))

	require.NoError(t, lb.Close())
	require.NoError(t, lb.Close())
	_, open := <-lb.Notifications()
	assert.False(t, open)
	assert.Equal(t, errLoopbackClosed, lb.Enable(nil))
}
