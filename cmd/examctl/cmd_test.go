package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	authservice "examsite/internal/auth/service"
	authstore "examsite/internal/auth/store"
	"examsite/internal/scheduling/models"
	schedulingservice "examsite/internal/scheduling/service"
	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
)

type stubReports struct {
	today     civil.Date
	statsDate civil.Date
	statsFor  *id.VenueID
	queue     *schedulingservice.VenueQueue
}

func (r *stubReports) Today(context.Context) civil.Date { return r.today }

func (r *stubReports) GetCheckInStats(_ context.Context, date civil.Date, venueID *id.VenueID) (*schedulingservice.CheckInStats, error) {
	r.statsDate, r.statsFor = date, venueID
	venue := id.VenueID(uuid.MustParse("0b6f7c3e-7d0a-4b43-9d55-1f1f3c1a0001"))
	counts := map[models.Status]int{models.StatusPending: 3, models.StatusCheckedIn: 1}
	return &schedulingservice.CheckInStats{
		ExamDate:    date,
		Counts:      counts,
		Total:       4,
		CheckInRate: 0.25,
		Venues:      []schedulingservice.VenueStats{{VenueID: venue, Counts: counts, Total: 4, CheckInRate: 0.25}},
	}, nil
}

func (r *stubReports) GetVenueQueue(_ context.Context, venueID id.VenueID, date civil.Date, _ int) (*schedulingservice.VenueQueue, error) {
	if r.queue == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "venue not found")
	}
	return r.queue, nil
}

func setup(t *testing.T) (*commandLine, *bytes.Buffer, *stubReports) {
	t.Helper()
	color.NoColor = true
	out := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reports := &stubReports{today: civil.Date{Year: 2026, Month: time.May, Day: 1}}
	users := authservice.New(authstore.NewInMemoryUsers(), nil, nil, time.Hour,
		authservice.WithLogger(logger), authservice.WithBcryptCost(bcrypt.MinCost))
	return &commandLine{out: out, logger: logger, users: users, reports: reports}, out, reports
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func runCases(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(context.Background(), append([]string{"examctl"}, tt.args...))
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrStr)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, out, _ := setup(t)
	runCases(t, cli, []cliTest{
		{name: "no command", args: nil, wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	})
	assert.Contains(t, out.String(), "createadmin -username USERNAME")
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	runCases(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "no database", args: []string{"migrate", "up"}, wantErrStr: "EXAMSITE_DATABASE_URL"},
	})

	var gotCommand string
	var gotArgs []string
	origMigrate := migrateFunc
	t.Cleanup(func() { migrateFunc = origMigrate })
	migrateFunc = func(_ context.Context, _ *sqlx.DB, command string, _ *slog.Logger, args ...string) error {
		gotCommand, gotArgs = command, args
		if command == "lol" {
			return errors.New(`"lol": no such command`)
		}
		return nil
	}
	cli.db = &sqlx.DB{}

	runCases(t, cli, []cliTest{
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: `"lol": no such command`},
	})
	assert.Equal(t, "lol", gotCommand)
	assert.Empty(t, gotArgs)
}

func Test_commandLine_createadmin(t *testing.T) {
	cli, out, _ := setup(t)
	password := "correct-horse"
	origRead := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = origRead })
	readPasswordFunc = func(int) ([]byte, error) { return []byte(password), nil }

	runCases(t, cli, []cliTest{
		{name: "no username", args: []string{"createadmin"}, wantErr: errHelp},
		{name: "created", args: []string{"createadmin", "-username", "ops"}},
		{name: "duplicate", args: []string{"createadmin", "-username", "ops"}, wantErrStr: "username is already taken"},
	})
	assert.Contains(t, out.String(), "admin ops created")

	password = "short"
	runCases(t, cli, []cliTest{
		{name: "weak password", args: []string{"createadmin", "-username", "ops2"}, wantErrStr: "at least 8 characters"},
	})

	password = ""
	runCases(t, cli, []cliTest{
		{name: "empty password", args: []string{"createadmin", "-username", "ops3"}, wantErr: errHelp},
	})
}

func Test_commandLine_stats(t *testing.T) {
	cli, out, reports := setup(t)

	runCases(t, cli, []cliTest{
		{name: "defaults to today", args: []string{"stats"}},
	})
	assert.Equal(t, reports.today, reports.statsDate)
	assert.Nil(t, reports.statsFor)
	assert.Contains(t, out.String(), "Check-in status for 2026-05-01")
	assert.Contains(t, out.String(), "25.0%")

	venue := "0b6f7c3e-7d0a-4b43-9d55-1f1f3c1a0001"
	runCases(t, cli, []cliTest{
		{name: "date and venue", args: []string{"stats", "-date", "2026-05-03", "-venue", venue}},
		{name: "bad date", args: []string{"stats", "-date", "03/05/2026"}, wantErrStr: "date must be YYYY-MM-DD"},
		{name: "bad venue", args: []string{"stats", "-venue", "hall-a"}, wantErrStr: "invalid"},
	})
	assert.Equal(t, civil.Date{Year: 2026, Month: time.May, Day: 3}, reports.statsDate)
	require.NotNil(t, reports.statsFor)
	assert.Equal(t, venue, reports.statsFor.String())
}

func Test_commandLine_queue(t *testing.T) {
	cli, out, reports := setup(t)
	venue := id.VenueID(uuid.New())
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	runCases(t, cli, []cliTest{
		{name: "venue required", args: []string{"queue"}, wantErr: errHelp},
		{name: "unknown venue", args: []string{"queue", "-venue", venue.String()}, wantErrStr: "venue not found"},
	})

	reports.queue = &schedulingservice.VenueQueue{
		VenueID:         venue,
		VenueName:       "Hall A",
		ExamDate:        reports.today,
		TotalPending:    1,
		AverageDuration: 20 * time.Minute,
		Entries: []schedulingservice.QueueEntry{{
			Position:     1,
			MaskedName:   "C*",
			StartAt:      start,
			EndAt:        start.Add(20 * time.Minute),
			ActivityType: models.ActivityTheory,
		}},
	}
	runCases(t, cli, []cliTest{
		{name: "prints the board", args: []string{"queue", "-venue", venue.String()}},
	})
	assert.Contains(t, out.String(), "Hall A on 2026-05-01: 1 waiting, about 20 min each")
	assert.Contains(t, out.String(), "C*")
	assert.Contains(t, out.String(), "09:20")
}
