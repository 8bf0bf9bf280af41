package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/notebridge/internal/errors"
	"github.com/hpungsan/notebridge/internal/note"
	"github.com/hpungsan/notebridge/internal/notify"
	"github.com/hpungsan/notebridge/internal/ops"
	"github.com/hpungsan/notebridge/internal/web"
)

// maxStdinBytes caps note bodies read from stdin.
const maxStdinBytes = 1 << 20

// newCLIApp creates the CLI application with all commands.
// rt may be nil when only help or version output is needed.
func newCLIApp(rt *runtime) *cli.App {
	defaultUser := ""
	if rt != nil {
		defaultUser = rt.cfg.DefaultUser
	}

	app := &cli.App{
		Name:    "notebridge",
		Usage:   "CRM notes kept in step with their legacy counterparts",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Value: defaultUser, Usage: "Acting user"},
		},
		Commands: []*cli.Command{
			createCmd(rt),
			updateCmd(rt),
			deleteCmd(rt),
			deleteAttachmentCmd(rt),
			getCmd(rt),
			listCmd(rt),
			copyCmd(rt),
			parentCmd(rt),
			notificationsCmd(rt),
			serveCmd(rt),
			workerCmd(rt),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// actorFrom returns the acting user selected by the global --user flag.
func actorFrom(c *cli.Context) ops.Actor {
	return ops.Actor{User: strings.TrimSpace(c.String("user"))}
}

// createCmd creates the create command.
func createCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a note (body from --body or stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "parent-type", Aliases: []string{"t"}, Usage: "Parent document type, e.g. Lead"},
			&cli.StringFlag{Name: "parent-id", Aliases: []string{"p"}, Usage: "Parent document id"},
			&cli.StringFlag{Name: "title", Usage: "Note title"},
			&cli.StringFlag{Name: "body", Aliases: []string{"b"}, Usage: "Note body (markdown)"},
			&cli.StringFlag{Name: "reply-to", Usage: "Id of the note this one replies to"},
			&cli.StringSliceFlag{Name: "attach", Aliases: []string{"a"}, Usage: "Attachment file name (repeatable)"},
		},
		Action: func(c *cli.Context) error {
			body, err := bodyFrom(c)
			if err != nil {
				return outputError(err)
			}

			output, err := rt.notes.Create(c.Context, actorFrom(c), ops.CreateInput{
				ParentType:   c.String("parent-type"),
				ParentID:     c.String("parent-id"),
				Title:        c.String("title"),
				Body:         body,
				ParentNoteID: c.String("reply-to"),
				Attachments:  c.StringSlice("attach"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// updateCmd creates the update command.
func updateCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Update a note's title or body (body from --body or stdin)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "New title (empty clears it)"},
			&cli.StringFlag{Name: "body", Aliases: []string{"b"}, Usage: "New body"},
			&cli.StringFlag{Name: "note", Usage: `Raw payload: a JSON string or {"title","body"} object`},
			&cli.StringFlag{Name: "parent-type", Aliases: []string{"t"}, Usage: "Expected parent type"},
			&cli.StringFlag{Name: "parent-id", Aliases: []string{"p"}, Usage: "Expected parent id"},
			&cli.StringSliceFlag{Name: "attach", Aliases: []string{"a"}, Usage: "Attachment file name to add (repeatable)"},
		},
		Action: func(c *cli.Context) error {
			var payload ops.UpdatePayload
			if raw := c.String("note"); raw != "" {
				p, err := ops.ParseUpdatePayload(json.RawMessage(raw))
				if err != nil {
					return outputError(err)
				}
				payload = p
			} else {
				if c.IsSet("title") {
					title := c.String("title")
					payload.Title = &title
				}
				body, err := bodyFrom(c)
				if err != nil {
					return outputError(err)
				}
				if c.IsSet("body") || body != "" {
					payload.Body = &body
				}
			}

			output, err := rt.notes.Update(c.Context, actorFrom(c), ops.UpdateInput{
				ParentType:  c.String("parent-type"),
				ParentID:    c.String("parent-id"),
				NoteID:      c.Args().First(),
				Payload:     payload,
				Attachments: c.StringSlice("attach"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a note with its replies, legacy counterparts and attachments",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := rt.notes.Delete(c.Context, actorFrom(c), ops.DeleteInput{NoteID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// deleteAttachmentCmd creates the delete-attachment command.
func deleteAttachmentCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "delete-attachment",
		Usage:     "Delete an attachment file, optionally detaching it from a note",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "note-id", Aliases: []string{"n"}, Usage: "Note the file is attached to"},
		},
		Action: func(c *cli.Context) error {
			output, err := rt.notes.DeleteAttachment(c.Context, actorFrom(c), ops.DeleteAttachmentInput{
				FileName: c.Args().First(),
				NoteID:   c.String("note-id"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// getCmd creates the get command.
func getCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Fetch a note by id",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := rt.notes.Get(c.Context, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List the note threads of a parent document",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "parent-type", Aliases: []string{"t"}, Required: true, Usage: "Parent document type"},
			&cli.StringFlag{Name: "parent-id", Aliases: []string{"p"}, Usage: "Parent document id"},
		},
		Action: func(c *cli.Context) error {
			output, err := rt.notes.List(c.Context, c.String("parent-type"), c.String("parent-id"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// copyCmd creates the copy command.
func copyCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "copy",
		Usage: "Copy every thread of one parent onto another",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from-type", Required: true, Usage: "Source parent type"},
			&cli.StringFlag{Name: "from-id", Required: true, Usage: "Source parent id"},
			&cli.StringFlag{Name: "to-type", Required: true, Usage: "Target parent type"},
			&cli.StringFlag{Name: "to-id", Required: true, Usage: "Target parent id"},
		},
		Action: func(c *cli.Context) error {
			output, err := rt.notes.Copy(c.Context, actorFrom(c), ops.CopyInput{
				FromType: c.String("from-type"),
				FromID:   c.String("from-id"),
				ToType:   c.String("to-type"),
				ToID:     c.String("to-id"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// parentCmd creates the parent command.
func parentCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "parent",
		Usage: "Register the display title of a parent document",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "parent-type", Aliases: []string{"t"}, Required: true, Usage: "Parent document type"},
			&cli.StringFlag{Name: "parent-id", Aliases: []string{"p"}, Required: true, Usage: "Parent document id"},
			&cli.StringFlag{Name: "title", Usage: "Display title"},
		},
		Action: func(c *cli.Context) error {
			output, err := rt.notes.RegisterParent(c.Context, note.Parent{
				Type:  c.String("parent-type"),
				ID:    c.String("parent-id"),
				Title: c.String("title"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// notificationsCmd creates the notifications command.
func notificationsCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "notifications",
		Usage: "List notification records addressed to the acting user",
		Action: func(c *cli.Context) error {
			actor := actorFrom(c)
			if actor.User == "" {
				return outputError(errors.NewInvalidRequest("user is required"))
			}
			output, err := rt.rich.ListNotifications(c.Context, actor.User)
			if err != nil {
				return outputError(err)
			}
			if output == nil {
				output = []note.Notification{}
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP API and timeline pages",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8484, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv, err := web.NewServer(rt.notes, rt.log, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(srv, rt.log)
		},
	}
}

// workerCmd creates the worker command.
func workerCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Drain the Redis notification queue",
		Action: func(c *cli.Context) error {
			if rt.queue == nil {
				return outputError(errors.NewInvalidRequest("redis_url must be configured to run the worker"))
			}
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt.log.Info().Str("queue", rt.queue.Key()).Msg("notification worker running")
			return notify.NewWorker(rt.queue, notify.LogSink{Log: rt.log}, rt.log).Run(ctx)
		},
	}
}

// Helper functions

// bodyFrom returns --body when set, otherwise the piped stdin.
func bodyFrom(c *cli.Context) (string, error) {
	if c.IsSet("body") {
		return c.String("body"), nil
	}
	if !stdinHasData() {
		return "", nil
	}
	body, err := readStdin(maxStdinBytes)
	if err != nil {
		return "", errors.NewInvalidRequest(err.Error())
	}
	return body, nil
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if nErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", nErr.Code, nErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}
