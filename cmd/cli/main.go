// Command cli is a small operator client for a fast-kv server.
//
//	cli exec SET greeting hello world
//	cli stats
//	printf 'INCR a\nINCR a\n' | cli pipe
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/VoolFI71/fast-kv/internal/client"
)

func main() {
	if err := newApp(os.Stdin, os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(in io.Reader, out io.Writer) *cli.App {
	return &cli.App{
		Name:      "fast-kv-cli",
		Usage:     "send commands to a fast-kv server",
		Reader:    in,
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Value:   "127.0.0.1:8080",
				Usage:   "server address",
				EnvVars: []string{"FASTKV_ADDR"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 5 * time.Second,
				Usage: "dial, read and write timeout",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "exec",
				Usage:     "send one command and print the reply",
				ArgsUsage: "COMMAND [ARGS...]",
				Action:    execAction,
			},
			{
				Name:   "stats",
				Usage:  "print server counters",
				Action: statsAction,
			},
			{
				Name:   "pipe",
				Usage:  "send every stdin line as a command and print the replies",
				Action: pipeAction,
			},
		},
	}
}

func connect(c *cli.Context) (*client.Client, error) {
	conn, err := client.Dial(c.String("addr"), c.Duration("timeout"))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", c.String("addr"), err)
	}
	return conn, nil
}

func execAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("exec needs a command", 2)
	}
	conn, err := connect(c)
	if err != nil {
		return err
	}
	defer conn.Close()

	reply, err := conn.Do(strings.Join(c.Args().Slice(), " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, reply)
	return nil
}

func statsAction(c *cli.Context) error {
	conn, err := connect(c)
	if err != nil {
		return err
	}
	defer conn.Close()

	counters, err := conn.Stats()
	if err != nil {
		return err
	}
	for _, name := range []string{"connections_now", "connections_total", "commands_total", "errors_total"} {
		fmt.Fprintf(c.App.Writer, "%-18s %d\n", name, counters[name])
	}
	return nil
}

// pipeAction answers lines one at a time so replies line up with their commands.
func pipeAction(c *cli.Context) error {
	conn, err := connect(c)
	if err != nil {
		return err
	}
	defer conn.Close()

	scanner := bufio.NewScanner(c.App.Reader)
	for scanner.Scan() {
		reply, err := conn.Do(scanner.Text())
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, reply)
	}
	return scanner.Err()
}
