package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/directory"
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/interval"
)

// EventResourceUpdated is the directory feed event carrying the full state
// of a bookable resource, working hours included.
const EventResourceUpdated = "directory.resource.updated.v1"

type resourceEvent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Notes string `json:"notes"`
	Hours []struct {
		Weekday     int  `json:"weekday"`
		IsWorking   bool `json:"is_working"`
		StartMinute int  `json:"start_minute"`
		EndMinute   int  `json:"end_minute"`
	} `json:"working_hours"`
}

// DirectoryFeedHandler upserts resource snapshots from the feed into the
// local directory.
func DirectoryFeedHandler(logger *slog.Logger, dir *directory.Postgres) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var ev resourceEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return fmt.Errorf("decode resource event: %w", err)
		}
		if ev.ID == "" {
			return fmt.Errorf("resource event missing id")
		}

		res := directory.Resource{ID: ev.ID, Name: ev.Name, Notes: ev.Notes}
		for _, h := range ev.Hours {
			if h.Weekday < 0 || h.Weekday > 6 {
				return fmt.Errorf("resource %s: weekday %d out of range", ev.ID, h.Weekday)
			}
			if !h.IsWorking {
				continue
			}
			window, err := interval.New(h.StartMinute, h.EndMinute)
			if err != nil {
				return fmt.Errorf("resource %s weekday %d: %w", ev.ID, h.Weekday, err)
			}
			res.Hours[h.Weekday] = directory.DayWindow{Working: true, Window: window}
		}

		if err := dir.Upsert(ctx, res); err != nil {
			return fmt.Errorf("upsert resource %s: %w", ev.ID, err)
		}
		logger.Info("resource updated from feed", "resource_id", ev.ID)
		return nil
	}
}
