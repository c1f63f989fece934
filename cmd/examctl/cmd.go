package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"syscall"

	"cloud.google.com/go/civil"
	"github.com/fatih/color"
	"github.com/jmoiron/sqlx"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"

	authmodels "examsite/internal/auth/models"
	authservice "examsite/internal/auth/service"
	"examsite/internal/platform/database"
	"examsite/internal/scheduling/models"
	schedulingservice "examsite/internal/scheduling/service"
	id "examsite/pkg/domain"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	migrateFunc      = database.Migrate  // mockable

	errHelp = errors.New("help provided")
)

type userCreator interface {
	CreateUser(ctx context.Context, cmd authservice.CreateUserCommand) (*authmodels.User, error)
}

type reporter interface {
	Today(ctx context.Context) civil.Date
	GetCheckInStats(ctx context.Context, date civil.Date, venueID *id.VenueID) (*schedulingservice.CheckInStats, error)
	GetVenueQueue(ctx context.Context, venueID id.VenueID, date civil.Date, limit int) (*schedulingservice.VenueQueue, error)
}

type commandLine struct {
	out     io.Writer
	logger  *slog.Logger
	db      *sqlx.DB
	users   userCreator
	reports reporter
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                          - run a goose command (up, down, status, version, ...)")
	fmt.Fprintln(cli.out, "  createadmin -username USERNAME                  - create an admin account, the password is prompted")
	fmt.Fprintln(cli.out, "  stats [-date YYYY-MM-DD] [-venue ID]            - check-in counts per venue")
	fmt.Fprintln(cli.out, "  queue -venue ID [-date YYYY-MM-DD] [-limit N]   - pending queue of a venue")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		return cli.migrate(ctx, args[2:])
	case "createadmin":
		return cli.createAdmin(ctx, args[2:])
	case "stats":
		return cli.stats(ctx, args[2:])
	case "queue":
		return cli.queue(ctx, args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}
	if cli.db == nil {
		return errors.New("migrate needs EXAMSITE_DATABASE_URL")
	}
	return migrateFunc(ctx, cli.db, args[0], cli.logger, args[1:]...)
}

func (cli *commandLine) createAdmin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("createadmin", flag.ContinueOnError)
	fs.SetOutput(cli.out)
	username := fs.String("username", "", "The admin's username. The password will be prompted next.")
	if err := fs.Parse(args); err != nil {
		return errHelp
	}
	if *username == "" {
		fs.Usage()
		return errHelp
	}

	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return errHelp
	}

	u, err := cli.users.CreateUser(ctx, authservice.CreateUserCommand{
		Username: *username,
		Password: string(pwd),
		Role:     authmodels.RoleAdmin,
	})
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(cli.out, "admin %s created (%s)\n", u.Username, u.ID)
	return nil
}

func (cli *commandLine) stats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(cli.out)
	rawDate := fs.String("date", "", "Exam date, defaults to today in the exam time zone.")
	rawVenue := fs.String("venue", "", "Restrict to one venue.")
	if err := fs.Parse(args); err != nil {
		return errHelp
	}

	date, err := cli.date(ctx, *rawDate)
	if err != nil {
		return err
	}
	var venueID *id.VenueID
	if *rawVenue != "" {
		v, err := id.ParseVenueID(*rawVenue)
		if err != nil {
			return err
		}
		venueID = &v
	}

	st, err := cli.reports.GetCheckInStats(ctx, date, venueID)
	if err != nil {
		return err
	}

	color.New(color.FgYellow).Fprintf(cli.out, "\nCheck-in status for %s\n", st.ExamDate)
	table := tablewriter.NewWriter(cli.out)
	header := []string{"Venue"}
	for _, status := range models.AllStatuses {
		header = append(header, string(status))
	}
	table.SetHeader(append(header, "Total", "Rate"))
	for _, v := range st.Venues {
		table.Append(statsRow(v.VenueID.String(), v.Counts, v.Total, v.CheckInRate))
	}
	table.SetFooter(statsRow("all", st.Counts, st.Total, st.CheckInRate))
	table.Render()
	return nil
}

func statsRow(label string, counts map[models.Status]int, total int, rate float64) []string {
	row := []string{label}
	for _, status := range models.AllStatuses {
		row = append(row, strconv.Itoa(counts[status]))
	}
	return append(row, strconv.Itoa(total), fmt.Sprintf("%.1f%%", rate*100))
}

func (cli *commandLine) queue(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("queue", flag.ContinueOnError)
	fs.SetOutput(cli.out)
	rawVenue := fs.String("venue", "", "Venue id.")
	rawDate := fs.String("date", "", "Exam date, defaults to today in the exam time zone.")
	limit := fs.Int("limit", 20, "Number of entries to show.")
	if err := fs.Parse(args); err != nil {
		return errHelp
	}
	if *rawVenue == "" {
		fs.Usage()
		return errHelp
	}
	venueID, err := id.ParseVenueID(*rawVenue)
	if err != nil {
		return err
	}
	date, err := cli.date(ctx, *rawDate)
	if err != nil {
		return err
	}

	q, err := cli.reports.GetVenueQueue(ctx, venueID, date, *limit)
	if err != nil {
		return err
	}

	color.New(color.FgYellow).Fprintf(cli.out, "\n%s on %s: %d waiting, about %d min each\n",
		q.VenueName, q.ExamDate, q.TotalPending, int(q.AverageDuration.Minutes()))
	table := tablewriter.NewWriter(cli.out)
	table.SetHeader([]string{"#", "Candidate", "Start", "End", "Activity"})
	for _, e := range q.Entries {
		table.Append([]string{
			strconv.Itoa(e.Position),
			e.MaskedName,
			e.StartAt.Format("15:04"),
			e.EndAt.Format("15:04"),
			string(e.ActivityType),
		})
	}
	table.Render()
	return nil
}

func (cli *commandLine) date(ctx context.Context, raw string) (civil.Date, error) {
	if raw == "" {
		return cli.reports.Today(ctx), nil
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		return civil.Date{}, fmt.Errorf("date must be YYYY-MM-DD (got %q)", raw)
	}
	return d, nil
}
