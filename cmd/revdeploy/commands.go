package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/andresuchdata/revdeploy/internal/revision"
	"github.com/andresuchdata/revdeploy/internal/service"
	"github.com/urfave/cli/v2"
)

func listRevisions(c *cli.Context) error {
	svc, err := buildService(c, service.Options{})
	if err != nil {
		return err
	}

	records, err := svc.ListRevisions(c.Context)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(c.App.Writer, "no revisions found")
		return nil
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REVISION\tACTIVE\tUPLOADED")
	for _, r := range records {
		active := ""
		if r.Active {
			active = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Revision, active, r.Timestamp.Format(time.RFC3339))
	}
	return tw.Flush()
}

func activateRevision(c *cli.Context) error {
	rev := c.String("revision")
	if rev == "" {
		rev = configFrom(c).Revision.Revision
	}
	if rev == "" {
		return fmt.Errorf("a revision is required (--revision or REVISION_KEY)")
	}

	strategy, err := revision.ParseStrategy(c.String("validate"))
	if err != nil {
		return err
	}

	svc, err := buildService(c, service.Options{})
	if err != nil {
		return err
	}

	act, err := svc.Activate(c.Context, rev, strategy)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "✔  %s => %s\n", act.Source, act.Destination)
	return nil
}

func uploadRevision(c *cli.Context) error {
	svc, err := buildService(c, service.Options{Overwrite: c.Bool("overwrite")})
	if err != nil {
		return err
	}

	key, err := svc.PublishFile(c.Context, c.String("revision"), c.String("file"))
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "uploaded %s\n", key)
	return nil
}

func showHistory(c *cli.Context) error {
	svc, err := buildService(c, service.Options{})
	if err != nil {
		return err
	}

	entries, err := svc.History(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(c.App.Writer, "no activations recorded")
		return nil
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REVISION\tACTIVATED\tSOURCE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Revision, e.ActivatedAt.Format(time.RFC3339), e.Source)
	}
	return tw.Flush()
}
