package fifo

// EOF is returned by GetChar when the queue is empty.
const EOF = -1

// GetChar reads one byte, or returns EOF if there is nothing to read.
func GetChar(q *Queue[byte]) int {
	ch, ok := q.Read()
	if !ok {
		return EOF
	}
	return int(ch)
}

// PutChar writes one byte and returns 1, or 0 if it was rejected.
func PutChar(q *Queue[byte], ch byte) int {
	if q.Write(ch) {
		return 1
	}
	return 0
}

// PutString writes the bytes of s up to the first NUL and returns how many
// were accepted.
func PutString(q *Queue[byte], s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			s = s[:i]
			break
		}
	}
	return q.WriteN([]byte(s))
}
