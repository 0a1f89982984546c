package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/kacper-wojtaszczyk/jackfruit/bucketsync-go/internal/adapters/ndjson"
	"github.com/kacper-wojtaszczyk/jackfruit/bucketsync-go/internal/ingestion"
	"github.com/kacper-wojtaszczyk/jackfruit/bucketsync-go/internal/storage"
)

// Each table lookup lists the whole bucket, keep the fan-out small.
const lastBlockConcurrency = 4

func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return configErr(err)
		}
		return nil
	}
}

func (a *app) lastBlockCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "last-block TABLE...",
		Short: "Print the last synced block of each table",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, tables []string) error {
			client, err := a.newClient()
			if err != nil {
				return err
			}
			return a.lastBlocks(cmd.Context(), client, tables)
		},
	}
}

func (a *app) lastBlocks(ctx context.Context, client *storage.Client, tables []string) error {
	blocks := make([]uint64, len(tables))
	missing := make([]error, len(tables))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lastBlockConcurrency)
	for i, table := range tables {
		i, table := i, table
		g.Go(func() error {
			block, err := client.LastSyncBlock(gctx, table)
			var nf *storage.NotFoundError
			if errors.As(err, &nf) {
				missing[i] = err
				return nil
			}
			blocks[i] = block
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 1, ' ', 0)
	for i, table := range tables {
		if missing[i] != nil {
			fmt.Fprintf(w, "%s\t-\n", table)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\n", table, blocks[i])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	return errors.Join(missing...)
}

func (a *app) lsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [TABLE]",
		Short: "List the bucket snapshot, decoded into table, prefix and block",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.newClient()
			if err != nil {
				return err
			}
			idx, err := client.ListSnapshot(cmd.Context())
			if err != nil {
				return err
			}

			tables := idx.Tables()
			if len(args) == 1 {
				tables = args
			}

			w := tabwriter.NewWriter(a.out, 0, 4, 1, ' ', 0)
			fmt.Fprintln(w, "TABLE\tPREFIX\tBLOCK\tKEY")
			for _, table := range tables {
				for _, k := range idx.Get(table) {
					block := "-"
					if k.Indexed {
						block = fmt.Sprint(k.Block)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", k.Table, k.Prefix, block, k.Key())
				}
			}
			return w.Flush()
		},
	}
}

func (a *app) deleteAllCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-all TABLE",
		Short: "Delete every object under a table",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.newClient()
			if err != nil {
				return err
			}
			n, err := client.DeleteAll(cmd.Context(), args[0])
			fmt.Fprintf(a.out, "deleted %d objects from %s\n", n, args[0])
			return err
		},
	}
}

type putOptions struct {
	table       string
	prefix      string
	block       uint64
	next        bool
	deleteFirst bool
	input       string
}

func (a *app) putCommand() *cobra.Command {
	o := putOptions{prefix: "cow", input: "-"}
	cmd := &cobra.Command{
		Use:   "put",
		Short: "Write newline-delimited JSON rows as one block file",
		Long:  "Reads NDJSON rows and writes them to TABLE/PREFIX_BLOCK.json. An empty input writes nothing.",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.put(cmd.Context(), o)
		},
	}
	flags := cmd.Flags()
	addTableFlag(flags, &o.table, "Table (first path segment of the object key).")
	flags.StringVar(&o.prefix, "prefix", o.prefix, "File prefix.")
	flags.Uint64Var(&o.block, "block", o.block, "Block number of the file. With --next, the block used when the table has no files yet.")
	flags.BoolVar(&o.next, "next", o.next, "Write to the block after the table's last synced block.")
	flags.BoolVar(&o.deleteFirst, "delete-first", o.deleteFirst, "Delete an existing object with the same key before writing.")
	flags.StringVarP(&o.input, "input", "i", o.input, "NDJSON input file, '-' for stdin.")
	return cmd
}

func addTableFlag(flags *pflag.FlagSet, table *string, usage string) {
	flags.StringVarP(table, "table", "t", *table, usage)
}

func requireTable(table string) error {
	if table == "" {
		return configErr(errors.New("--table is required"))
	}
	return nil
}

func (a *app) put(ctx context.Context, o putOptions) error {
	if err := requireTable(o.table); err != nil {
		return err
	}

	in := a.in
	if o.input != "-" {
		f, err := os.Open(o.input)
		if err != nil {
			return dataErr(err)
		}
		defer f.Close()
		in = f
	}

	client, err := a.newClient()
	if err != nil {
		return err
	}

	svc := ingestion.NewService(ndjson.NewReader(in), client)
	b, err := svc.Sync(ctx, ingestion.SyncRequest{
		Table:       o.table,
		Prefix:      o.prefix,
		Block:       o.block,
		Next:        o.next,
		DeleteFirst: o.deleteFirst,
	})
	if b != nil {
		fmt.Fprintf(a.out, "%s %s (%d rows)\n", b.State(), b.ObjectKey(), len(b.Rows))
	}
	return err
}

func (a *app) uploadCommand() *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a local file to TABLE/FILE",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireTable(table); err != nil {
				return err
			}
			client, err := a.newClient()
			if err != nil {
				return err
			}
			return client.UploadFile(cmd.Context(), args[0], table)
		},
	}
	addTableFlag(cmd.Flags(), &table, "Destination table.")
	return cmd
}

func (a *app) downloadCommand() *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "download FILE",
		Short: "Download TABLE/FILE to a local file",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireTable(table); err != nil {
				return err
			}
			client, err := a.newClient()
			if err != nil {
				return err
			}
			return client.DownloadFile(cmd.Context(), args[0], table)
		},
	}
	addTableFlag(cmd.Flags(), &table, "Source table.")
	return cmd
}
