package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/urfave/cli"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/tickengine/pkg/tickengine/config"
	"github.com/randalmurphal/tickengine/pkg/tickengine/journal"
)

var errNoAuditReader = errors.New("journal cannot read audit records")

func printConfig(c *cli.Context) error {
	settings, err := config.Load(afero.NewOsFs(), c.String("config"))
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	out, err := yaml.Marshal(map[string]any{"tickengine": settings.Map()})
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = c.App.Writer.Write(out)
	return err
}

func printAudit(c *cli.Context) error {
	store, err := openJournal(afero.NewOsFs(), c.String("journal"))
	if err != nil {
		return err
	}
	defer store.Close()

	reader, ok := store.(journal.AuditReader)
	if !ok {
		return errNoAuditReader
	}
	records, err := reader.RecentAudit(c.Int("limit"))
	if err != nil {
		return fmt.Errorf("read audit: %w", err)
	}

	w := c.App.Writer
	if c.Bool("json") {
		enc := json.NewEncoder(w)
		for _, rec := range records {
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
		return nil
	}

	for _, rec := range records {
		details, err := json.Marshal(rec.Details)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s  %-16s  tick=%-6d  phase=%-10s  %s\n",
			rec.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
			rec.Type,
			rec.State.TickCount,
			rec.State.Phase,
			details,
		)
	}
	return nil
}
