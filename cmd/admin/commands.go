package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"socketcraft.ai/internal/config"
	"socketcraft.ai/internal/item"
	"socketcraft.ai/internal/persistence/journal"
	"socketcraft.ai/internal/persistence/snapshot"
	"socketcraft.ai/internal/persistence/sqlitestore"
	"socketcraft.ai/internal/sockets"
)

type rootOpts struct {
	dbPath     string
	configPath string
	journalDir string
	role       string
	userID     string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	o := &rootOpts{}
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Inspect and edit socketed items in a socketcraft item database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&o.dbPath, "db", "./data/items.db", "sqlite item database")
	pf.StringVar(&o.configPath, "config", "./configs/socketcraft.yaml", "config path (defaults are used if missing)")
	pf.StringVar(&o.journalDir, "journal", "", "event journal directory (empty to disable)")
	pf.StringVar(&o.role, "role", "GAMEMASTER", "role used for slot edits")
	pf.StringVar(&o.userID, "user", "admin", "user id recorded in events")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		&cobra.Command{
			Use:   "slots <item-uuid>",
			Short: "List the socket slots of an item",
			Args:  cobra.ExactArgs(1),
			RunE:  o.run(listSlots),
		},
		&cobra.Command{
			Use:   "items <owner-id>",
			Short: "List the items an actor owns",
			Args:  cobra.ExactArgs(1),
			RunE:  o.run(listItems),
		},
		&cobra.Command{
			Use:   "import <file.json>",
			Short: "Load item documents from a JSON file",
			Args:  cobra.ExactArgs(1),
			RunE:  o.run(importItems),
		},
		&cobra.Command{
			Use:   "add-slot <item-uuid>",
			Short: "Append an empty socket slot",
			Args:  cobra.ExactArgs(1),
			RunE:  o.run(addSlot),
		},
		&cobra.Command{
			Use:   "remove-slot <item-uuid> <index>",
			Short: "Delete a socket slot, unsocketing its gem first",
			Args:  cobra.ExactArgs(2),
			RunE:  o.run(removeSlot),
		},
		&cobra.Command{
			Use:   "add-gem <item-uuid> <index> <gem-uuid>",
			Short: "Socket a gem into a slot",
			Args:  cobra.ExactArgs(3),
			RunE:  o.run(addGem),
		},
		&cobra.Command{
			Use:   "remove-gem <item-uuid> <index>",
			Short: "Unsocket the gem in a slot and return it to the owner",
			Args:  cobra.ExactArgs(2),
			RunE:  o.run(removeGem),
		},
		&cobra.Command{
			Use:   "export <file.snap.zst>",
			Short: "Write every item document to a compressed snapshot",
			Args:  cobra.ExactArgs(1),
			RunE:  o.run(exportItems),
		},
		&cobra.Command{
			Use:   "restore <file.snap.zst>",
			Short: "Load every item document from a snapshot, replacing same-id items",
			Args:  cobra.ExactArgs(1),
			RunE:  o.run(restoreItems),
		},
		&cobra.Command{
			Use:   "events <journal-dir>",
			Short: "Print the socket events recorded in a journal directory",
			Args:  cobra.ExactArgs(1),
			RunE:  printEvents,
		},
		newRemoteCmd(),
	)
	return root
}

// env is what every local subcommand runs against.
type env struct {
	cmd    *cobra.Command
	store  *sqlitestore.Store
	engine *sockets.Engine
	cfg    config.Config
	user   sockets.User
}

func (e *env) printf(format string, args ...any) {
	fmt.Fprintf(e.cmd.OutOrStdout(), format, args...)
}

func (o *rootOpts) run(fn func(ctx context.Context, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(o.configPath)
		if errors.Is(err, os.ErrNotExist) {
			cfg, err = config.Defaults(), nil
		}
		if err != nil {
			return err
		}
		role, err := sockets.ParseRole(o.role)
		if err != nil {
			return err
		}

		logger := zap.NewNop()
		if o.verbose {
			if logger, err = zap.NewDevelopment(); err != nil {
				return err
			}
		}
		defer func() { _ = logger.Sync() }()

		store, err := sqlitestore.Open(o.dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		opts := []sockets.Option{sockets.WithLogger(logger)}
		if strings.TrimSpace(o.journalDir) != "" {
			events := journal.NewEventLogger(o.journalDir)
			defer events.Close()
			opts = append(opts, sockets.WithEventSink(events))
		}
		engine, err := sockets.New(store, cfg, opts...)
		if err != nil {
			return err
		}
		e := &env{cmd: cmd, store: store, engine: engine, cfg: cfg, user: sockets.User{ID: o.userID, Role: role}}
		return fn(cmd.Context(), e, args)
	}
}

func listSlots(ctx context.Context, e *env, args []string) error {
	list, err := e.engine.ListSlots(ctx, args[0], sockets.QueryOptions{})
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tSTATE\tGEM\tUUID")
	for _, si := range list {
		state := "empty"
		if si.Occupied {
			state = "occupied"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", si.Index, state, si.GemName, si.GemUUID)
	}
	return tw.Flush()
}

func listItems(ctx context.Context, e *env, args []string) error {
	items, err := e.store.ItemsOwnedBy(ctx, args[0])
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UUID\tNAME\tTYPE\tQTY\tGEM")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%v\n", it.UUID(), it.Name, it.Type, it.Quantity(), e.engine.IsGem(it))
	}
	return tw.Flush()
}

// seedFile is the import format: loose items plus items keyed by owner.
type seedFile struct {
	Items  []item.Item            `json:"items"`
	Actors map[string][]item.Item `json:"actors"`
}

func importItems(ctx context.Context, e *env, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	n := 0
	put := func(owner string, it item.Item) error {
		it.OwnerID = owner
		stored, err := e.store.Put(ctx, &it)
		if err != nil {
			return err
		}
		e.printf("%s\n", stored.UUID())
		n++
		return nil
	}
	for _, it := range seed.Items {
		if err := put("", it); err != nil {
			return err
		}
	}
	for owner, items := range seed.Actors {
		for _, it := range items {
			if err := put(owner, it); err != nil {
				return err
			}
		}
	}
	e.printf("imported %d items\n", n)
	return nil
}

func addSlot(ctx context.Context, e *env, args []string) error {
	idx, err := e.engine.AddSlot(ctx, e.user, args[0])
	if err != nil {
		return err
	}
	e.printf("added slot %d\n", idx)
	return nil
}

func removeSlot(ctx context.Context, e *env, args []string) error {
	idx, err := parseIndex(args[1])
	if err != nil {
		return err
	}
	if err := e.engine.RemoveSlot(ctx, e.user, args[0], idx); err != nil {
		return err
	}
	e.printf("removed slot %d\n", idx)
	return nil
}

func addGem(ctx context.Context, e *env, args []string) error {
	idx, err := parseIndex(args[1])
	if err != nil {
		return err
	}
	slot, err := e.engine.AddGem(ctx, args[0], idx, sockets.FromUUID(args[2]))
	if err != nil {
		return err
	}
	e.printf("socketed %s into slot %d\n", slot.Gem.Name, idx)
	return nil
}

func removeGem(ctx context.Context, e *env, args []string) error {
	idx, err := parseIndex(args[1])
	if err != nil {
		return err
	}
	returned, err := e.engine.RemoveGem(ctx, args[0], idx)
	if err != nil {
		return err
	}
	if returned == nil {
		e.printf("slot %d emptied\n", idx)
		return nil
	}
	e.printf("slot %d emptied; returned to %s (qty %d)\n", idx, returned.UUID(), returned.Quantity())
	return nil
}

func exportItems(ctx context.Context, e *env, args []string) error {
	items, err := e.store.All(ctx)
	if err != nil {
		return err
	}
	if err := snapshot.Write(args[0], snapshot.FromItems(e.cfg.Namespace, items)); err != nil {
		return err
	}
	e.printf("exported %d items to %s\n", len(items), args[0])
	return nil
}

func restoreItems(ctx context.Context, e *env, args []string) error {
	snap, err := snapshot.Read(args[0])
	if err != nil {
		return err
	}
	if snap.Header.Namespace != "" && snap.Header.Namespace != e.cfg.Namespace {
		return fmt.Errorf("snapshot namespace %q does not match config namespace %q", snap.Header.Namespace, e.cfg.Namespace)
	}
	for _, it := range snap.Items() {
		if _, err := e.store.Put(ctx, it); err != nil {
			return err
		}
	}
	e.printf("restored %d items\n", len(snap.Records))
	return nil
}

func printEvents(cmd *cobra.Command, args []string) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tKIND\tHOST\tSLOT\tGEM\tERROR")
	err := journal.ReadEvents(args[0], func(ev sockets.Event) error {
		_, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			ev.Time.Format(time.RFC3339), ev.Kind, ev.HostUUID, ev.Slot, ev.GemName, ev.Error)
		return err
	})
	if err != nil {
		return err
	}
	return tw.Flush()
}

func parseIndex(s string) (int, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("index %q: %w", s, sockets.ErrInvalidIndex)
	}
	return idx, nil
}
