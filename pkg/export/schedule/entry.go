package schedule

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/robfig/cron/v3"

	"mercator-hq/tabula/pkg/catalog"
	"mercator-hq/tabula/pkg/config"
	"mercator-hq/tabula/pkg/export"
	"mercator-hq/tabula/pkg/export/fields"
)

// Entry is one scheduled export.
type Entry struct {
	Name string
	Spec string

	// Request is the template submitted on every run.
	Request *export.Request

	// CreatedToday limits each run to records created on the run's date.
	CreatedToday bool

	schedule cron.Schedule
}

// EntriesFrom converts configured schedules.
func EntriesFrom(cfgs []config.ScheduleConfig) ([]Entry, error) {
	entries := make([]Entry, 0, len(cfgs))
	for i, c := range cfgs {
		e, err := entryFrom(c)
		if err != nil {
			return nil, fmt.Errorf("schedules[%d] (%s): %w", i, c.Name, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func entryFrom(c config.ScheduleConfig) (Entry, error) {
	sched, err := cron.ParseStandard(c.Cron)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid cron expression %q: %w", c.Cron, err)
	}
	kind, err := export.ParseKind(c.Kind)
	if err != nil {
		return Entry{}, err
	}
	fileType := export.FileCSV
	if c.FileType != "" {
		if fileType, err = export.ParseFileType(c.FileType); err != nil {
			return Entry{}, err
		}
	}
	delimiter := export.DefaultDelimiter
	if c.Delimiter != "" {
		r, size := utf8.DecodeRuneInString(c.Delimiter)
		if size != len(c.Delimiter) {
			return Entry{}, fmt.Errorf("delimiter %q must be a single character", c.Delimiter)
		}
		delimiter = r
	}
	if c.CreatedToday && kind != export.KindGiftCard {
		return Entry{}, fmt.Errorf("created_today is only supported for gift card exports")
	}

	fieldIDs := append([]string(nil), c.Fields...)
	if len(fieldIDs) == 0 && kind == export.KindProduct {
		fieldIDs = fields.ProductFieldIDs()
	}

	req := &export.Request{
		Kind:      kind,
		Info:      export.ExportInfo{Fields: fieldIDs},
		FileType:  fileType,
		Delimiter: delimiter,
		Recipient: c.Recipient,
	}
	if err := req.Validate(); err != nil {
		return Entry{}, err
	}

	return Entry{
		Name:         c.Name,
		Spec:         c.Cron,
		Request:      req,
		CreatedToday: c.CreatedToday,
		schedule:     sched,
	}, nil
}

// RequestAt returns the request to submit for a run at t.
func (e Entry) RequestAt(t time.Time) *export.Request {
	req := e.Request.Clone()
	if e.CreatedToday {
		day := t.UTC().Format(catalog.DateLayout)
		req.Scope = export.Scope{Filter: map[string]any{
			"created": map[string]any{"gte": day, "lte": day},
		}}
	}
	return req
}

// Next returns the next activation after t.
func (e Entry) Next(t time.Time) time.Time {
	if e.schedule == nil {
		return time.Time{}
	}
	return e.schedule.Next(t)
}
