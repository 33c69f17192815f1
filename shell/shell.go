// Package shell is the diagnostic console of the bridge. Lines are split on
// white space; the first field names the command and the rest are passed to
// it as arguments.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownCommand   = errors.New("shell: unknown command")
	ErrDuplicateCommand = errors.New("shell: command already registered")
	ErrInvalidCommand   = errors.New("shell: command needs a name and a handler")
)

// Command is a named console command.
type Command struct {
	Name  string
	Usage string
	Help  string
	Run   func(ctx context.Context, w io.Writer, args []string) error
}

// Shell dispatches console lines to registered commands.
type Shell struct {
	out io.Writer
	log logrus.FieldLogger

	mu       sync.RWMutex
	commands map[string]Command
}

// New returns a shell writing command output to out. The help command is
// always registered.
func New(out io.Writer, log logrus.FieldLogger) *Shell {
	s := &Shell{
		out:      out,
		log:      log.WithField("component", "shell"),
		commands: make(map[string]Command),
	}
	s.commands["help"] = Command{
		Name: "help",
		Help: "list commands",
		Run:  s.help,
	}
	return s
}

// Register adds a command.
func (s *Shell) Register(cmd Command) error {
	if cmd.Name == "" || cmd.Run == nil || strings.ContainsAny(cmd.Name, " \t") {
		return ErrInvalidCommand
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.commands[cmd.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, cmd.Name)
	}
	s.commands[cmd.Name] = cmd
	return nil
}

// Exec runs a single line. Blank lines are ignored.
func (s *Shell) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	s.mu.RLock()
	cmd, ok := s.commands[fields[0]]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, fields[0])
	}
	s.log.WithField("cmd", cmd.Name).Debug("exec")
	return cmd.Run(ctx, s.out, fields[1:])
}

// Run executes lines read from r until it is exhausted or ctx is done.
// Command errors are printed and do not stop the shell.
func (s *Shell) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Exec(ctx, scanner.Text()); err != nil {
			s.log.WithError(err).Debug("command failed")
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

func (s *Shell) help(ctx context.Context, w io.Writer, args []string) error {
	s.mu.RLock()
	cmds := make([]Command, 0, len(s.commands))
	for _, cmd := range s.commands {
		cmds = append(cmds, cmd)
	}
	s.mu.RUnlock()
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })

	for _, cmd := range cmds {
		usage := cmd.Name
		if cmd.Usage != "" {
			usage += " " + cmd.Usage
		}
		fmt.Fprintf(w, "%-28s %s\n", usage, cmd.Help)
	}
	return nil
}
