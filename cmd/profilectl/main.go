package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medvault-health/profile-client/internal/alerts"
	"github.com/medvault-health/profile-client/internal/auth"
	"github.com/medvault-health/profile-client/internal/codesearch"
	"github.com/medvault-health/profile-client/internal/config"
	"github.com/medvault-health/profile-client/internal/documents"
	"github.com/medvault-health/profile-client/internal/emergency"
	"github.com/medvault-health/profile-client/internal/forms"
	"github.com/medvault-health/profile-client/internal/messaging"
	"github.com/medvault-health/profile-client/internal/prediction"
	"github.com/medvault-health/profile-client/internal/profile"
	"github.com/medvault-health/profile-client/internal/rest"
	"github.com/medvault-health/profile-client/internal/session"
	"github.com/medvault-health/profile-client/internal/telemetry"
)

const usage = `Usage: profilectl <command> [flags]

Commands:
  login            sign in and store the session
  register         create an account and sign in
  logout           end the session and clear stored credentials
  whoami           show the signed-in identity
  list             list a profile collection
  add              create a record in a collection from a JSON payload
  delete           delete one record from a collection
  search           look up medical codes in a vocabulary
  predict          show the cycle forecast
  panic            raise a panic alert
  upload           attach documents to a medical-history event
  emergency-serve  serve the emergency summary for a share token
`

type localeSource struct{ lang string }

func (l localeSource) Locale() string { return l.lang }

// app bundles the wired client stack for the subcommands.
type app struct {
	cfg    config.Config
	rest   *rest.Client
	gate   *session.Gate
	auth   *auth.Client
	stores *profile.Stores
	logger zerolog.Logger
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("MEDVAULT_CONFIG"))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.InitProvider(ctx, telemetry.DefaultConfig(cfg.Telemetry.OTLPEndpoint), logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Telemetry setup failed, continuing without it")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		provider.Shutdown(shutdownCtx)
	}()

	a, err := buildApp(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize client")
	}

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		logger.Fatal().Err(err).Str("command", os.Args[1]).Msg("Command failed")
	}
}

func buildApp(cfg config.Config, logger zerolog.Logger) (*app, error) {
	credPath, err := session.DefaultCredentialPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve credential path: %w", err)
	}

	var metrics rest.MetricsRecorder
	if m, err := telemetry.InitMetrics(); err == nil {
		metrics = m
	} else {
		logger.Warn().Err(err).Msg("Metrics setup failed, continuing without them")
	}

	client := rest.NewClient(rest.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Locale:  localeSource{lang: cfg.API.Language},
		Metrics: metrics,
		Logger:  logger,
	})
	gate := session.NewGate(session.NewFileStore(credPath), client, logger)
	client.SetTokenSource(gate)
	client.SetUnauthorizedHook(gate.HandleUnauthorized)

	return &app{
		cfg:    cfg,
		rest:   client,
		gate:   gate,
		auth:   auth.NewClient(client, gate, logger),
		stores: profile.NewStores(client, logger),
		logger: logger,
	}, nil
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.cmdLogin(ctx, args)
	case "register":
		return a.cmdRegister(ctx, args)
	case "logout":
		a.gate.Logout()
		fmt.Println("Signed out.")
		return nil
	case "whoami":
		return a.cmdWhoami(ctx)
	case "list":
		return a.cmdList(ctx, args)
	case "add":
		return a.cmdAdd(ctx, args)
	case "delete":
		return a.cmdDelete(ctx, args)
	case "search", "search-codes":
		return a.cmdSearch(ctx, args)
	case "predict":
		return a.cmdPredict(ctx)
	case "panic":
		return a.cmdPanic(ctx, args)
	case "upload":
		return a.cmdUpload(ctx, args)
	case "emergency-serve":
		return a.cmdEmergencyServe(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	identity, err := a.auth.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Signed in as %s %s <%s>\n", identity.FirstName, identity.LastName, identity.Email)
	return nil
}

// registrationSchema is the account sign-up form: the repeat field must
// match the password and carries the mismatch error itself.
func registrationSchema() forms.Schema {
	return forms.Schema{Fields: map[string]forms.Field{
		"email":          {Required: true},
		"firstName":      {Required: true},
		"lastName":       {Required: true},
		"password":       {Required: true, MinLength: 10},
		"passwordRepeat": {Required: true, Match: "password"},
	}}
}

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	firstName := fs.String("first-name", "", "first name")
	lastName := fs.String("last-name", "", "last name")
	password := fs.String("password", "", "password, at least 10 characters")
	passwordRepeat := fs.String("password-repeat", "", "repeat the password")
	fs.Parse(args)

	form := forms.NewForm(registrationSchema())
	form.SetValue("email", *email)
	form.SetValue("firstName", *firstName)
	form.SetValue("lastName", *lastName)
	form.SetValue("password", *password)
	form.SetValue("passwordRepeat", *passwordRepeat)

	err := form.Submit(ctx, func(ctx context.Context, values map[string]interface{}) error {
		identity, err := a.auth.Register(ctx,
			values["email"].(string),
			values["password"].(string),
			values["firstName"].(string),
			values["lastName"].(string),
		)
		if err != nil {
			return err
		}
		fmt.Printf("Registered and signed in as %s\n", identity.Email)
		return nil
	})
	if err == forms.ErrValidation {
		for field, msg := range form.Errors() {
			fmt.Fprintf(os.Stderr, "%s: %s\n", field, msg)
		}
	}
	return err
}

// requireSession resolves the stored credential before any authenticated
// command runs.
func (a *app) requireSession(ctx context.Context) error {
	if a.gate.Check(ctx) != session.StatusAuthenticated {
		return fmt.Errorf("not signed in, run: profilectl login")
	}
	return nil
}

func (a *app) cmdWhoami(ctx context.Context) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	identity := a.gate.Identity()
	fmt.Printf("%s %s <%s>", identity.FirstName, identity.LastName, identity.Email)
	if identity.Admin {
		fmt.Print(" (admin)")
	}
	fmt.Println()
	return nil
}

func (a *app) cmdList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	collection := fs.String("collection", "", "one of: allergies, diseases, medications, vital-signs, contacts, pregnancies, menstrual-cycles, addictions, psychiatric-conditions, infectious-diseases")
	fs.Parse(args)
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	items, err := a.collectionItems(ctx, *collection)
	if err != nil {
		return err
	}
	return printJSON(items)
}

// collectionItems fetches one collection and returns its records. The store
// keeps fetch errors in its state, so they are surfaced here explicitly.
func (a *app) collectionItems(ctx context.Context, name string) (interface{}, error) {
	type fetcher struct {
		fetch func(context.Context)
		items func() (interface{}, error)
	}
	snapshot := func(err error, items interface{}) (interface{}, error) { return items, err }

	byName := map[string]fetcher{
		"allergies": {a.stores.Allergies.FetchAll, func() (interface{}, error) {
			s := a.stores.Allergies.Snapshot()
			return snapshot(s.Err, s.Items)
		}},
		"diseases": {a.stores.Diseases.FetchAll, func() (interface{}, error) {
			s := a.stores.Diseases.Snapshot()
			return snapshot(s.Err, s.Items)
		}},
		"medications": {a.stores.Medications.FetchAll, func() (interface{}, error) {
			s := a.stores.Medications.Snapshot()
			return snapshot(s.Err, s.Items)
		}},
		"vital-signs": {a.stores.VitalSigns.FetchAll, func() (interface{}, error) {
			s := a.stores.VitalSigns.Snapshot()
			return snapshot(s.Err, s.Items)
		}},
		"contacts": {a.stores.Contacts.FetchAll, func() (interface{}, error) {
			s := a.stores.Contacts.Snapshot()
			return snapshot(s.Err, s.Items)
		}},
		"pregnancies": {a.stores.Pregnancies.FetchAll, func() (interface{}, error) {
			s := a.stores.Pregnancies.Snapshot()
			return snapshot(s.Err, s.Items)
		}},
		"menstrual-cycles": {a.stores.CycleLogs.FetchAll, func() (interface{}, error) {
			s := a.stores.CycleLogs.Snapshot()
			return snapshot(s.Err, s.Items)
		}},
		"addictions": {a.stores.Addictions.FetchAll, func() (interface{}, error) {
			s := a.stores.Addictions.Snapshot()
			return snapshot(s.Err, s.Items)
		}},
		"psychiatric-conditions": {a.stores.Psychiatric.FetchAll, func() (interface{}, error) {
			s := a.stores.Psychiatric.Snapshot()
			return snapshot(s.Err, s.Items)
		}},
		"infectious-diseases": {a.stores.Infectious.FetchAll, func() (interface{}, error) {
			s := a.stores.Infectious.Snapshot()
			return snapshot(s.Err, s.Items)
		}},
	}

	f, ok := byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", name)
	}
	f.fetch(ctx)
	return f.items()
}

func (a *app) cmdAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	collection := fs.String("collection", "", "collection to create the record in")
	payload := fs.String("json", "", "record fields as a JSON object")
	fs.Parse(args)
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(*payload), &fields); err != nil {
		return fmt.Errorf("invalid -json payload: %w", err)
	}
	delete(fields, "uuid") // server assigns identity

	var created interface{}
	var err error
	switch *collection {
	case "allergies":
		created, err = a.stores.Allergies.Create(ctx, fields)
	case "diseases":
		created, err = a.stores.Diseases.Create(ctx, fields)
	case "medications":
		created, err = a.stores.Medications.Create(ctx, fields)
	case "vital-signs":
		created, err = a.stores.VitalSigns.Create(ctx, fields)
	case "contacts":
		created, err = a.stores.Contacts.Create(ctx, fields)
	case "pregnancies":
		created, err = a.stores.Pregnancies.Create(ctx, fields)
	case "menstrual-cycles":
		created, err = a.stores.CycleLogs.Create(ctx, fields)
	case "addictions":
		created, err = a.stores.Addictions.Create(ctx, fields)
	case "psychiatric-conditions":
		created, err = a.stores.Psychiatric.Create(ctx, fields)
	case "infectious-diseases":
		created, err = a.stores.Infectious.Create(ctx, fields)
	default:
		return fmt.Errorf("unknown collection %q", *collection)
	}
	if err != nil {
		return err
	}
	return printJSON(created)
}

func (a *app) cmdDelete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	collection := fs.String("collection", "", "collection holding the record")
	id := fs.String("uuid", "", "record uuid")
	fs.Parse(args)
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	if err := uuid.Validate(*id); err != nil {
		return fmt.Errorf("invalid uuid: %w", err)
	}

	var err error
	switch *collection {
	case "allergies":
		err = a.stores.Allergies.Delete(ctx, *id)
	case "diseases":
		err = a.stores.Diseases.Delete(ctx, *id)
	case "medications":
		err = a.stores.Medications.Delete(ctx, *id)
	case "vital-signs":
		err = a.stores.VitalSigns.Delete(ctx, *id)
	case "contacts":
		err = a.stores.Contacts.Delete(ctx, *id)
	case "pregnancies":
		err = a.stores.Pregnancies.Delete(ctx, *id)
	case "menstrual-cycles":
		err = a.stores.CycleLogs.Delete(ctx, *id)
	case "addictions":
		err = a.stores.Addictions.Delete(ctx, *id)
	case "psychiatric-conditions":
		err = a.stores.Psychiatric.Delete(ctx, *id)
	case "infectious-diseases":
		err = a.stores.Infectious.Delete(ctx, *id)
	default:
		return fmt.Errorf("unknown collection %q", *collection)
	}
	if err != nil {
		return err
	}
	fmt.Println("Deleted.")
	return nil
}

func (a *app) cmdSearch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	vocabulary := fs.String("vocabulary", "snomed", "terminology vocabulary")
	term := fs.String("term", "", "search term, at least 3 characters")
	fs.Parse(args)
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	candidates, err := codesearch.NewClient(a.rest, a.logger).Search(ctx, *vocabulary, *term)
	if err != nil {
		return err
	}
	for _, c := range candidates {
		fmt.Printf("%-12s %s (%s)\n", c.Code, c.Name, c.Source)
	}
	return nil
}

func (a *app) cmdPredict(ctx context.Context) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	p, err := prediction.NewClient(a.rest).Get(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Next period:    %s\n", prediction.FormatDate(p.NextPeriod))
	fmt.Printf("Fertile window: %s\n", prediction.FormatWindow(p.FertileWindow))
	if p.Confidence != prediction.ConfidenceUnknown {
		fmt.Printf("Confidence:     %s\n", p.Confidence)
	}
	return nil
}

func (a *app) cmdPanic(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("panic", flag.ExitOnError)
	lat := fs.Float64("lat", 0, "latitude")
	lon := fs.Float64("lon", 0, "longitude")
	hasLocation := fs.Bool("location", false, "attach the given coordinates")
	message := fs.String("message", "", "optional message for the dispatcher")
	fs.Parse(args)
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	publisher := a.openPublisher()
	if publisher != nil {
		defer publisher.Close()
	}

	var loc *alerts.Location
	if *hasLocation {
		loc = &alerts.Location{Latitude: *lat, Longitude: *lon}
	}
	alert, err := alerts.NewDispatcher(a.rest, publisher, a.gate, a.logger).Panic(ctx, loc, *message)
	if err != nil {
		return err
	}
	fmt.Printf("Alert %s raised at %s\n", alert.UUID, alert.RaisedAt.Format(time.RFC3339))
	return nil
}

func (a *app) cmdUpload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	event := fs.String("event", "", "medical-history event uuid")
	fs.Parse(args)
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("no files given")
	}

	var files []documents.File
	for _, path := range fs.Args() {
		file, closer, err := documents.FromPath(path)
		if err != nil {
			return err
		}
		defer closer.Close()
		files = append(files, file)
	}

	docs, err := documents.NewClient(a.rest, a.logger).Upload(ctx, *event, files...)
	if err != nil {
		return err
	}
	fmt.Printf("Uploaded %d document(s).\n", len(docs))
	return nil
}

func (a *app) cmdEmergencyServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("emergency-serve", flag.ExitOnError)
	token := fs.String("token", "", "share token the summary is published under")
	fs.Parse(args)
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	if *token == "" {
		*token = uuid.NewString()
	}

	a.stores.FetchAll(ctx)

	publisher := a.openPublisher()
	if publisher != nil {
		defer publisher.Close()
	}

	fmt.Printf("Emergency summary at http://localhost%s/emergency/%s\n", a.cfg.Emergency.ListenAddr, *token)
	server := emergency.NewServer(a.stores, publisher, *token, a.logger)
	return server.ListenAndServe(ctx, a.cfg.Emergency.ListenAddr)
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// openPublisher connects to the broker when one is configured. A missing
// broker is not an error: events are simply skipped.
func (a *app) openPublisher() *messaging.Publisher {
	if a.cfg.Messaging.RabbitMQURL == "" {
		return nil
	}
	publisher, err := messaging.NewPublisher(a.cfg.Messaging.RabbitMQURL, a.logger)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Broker unavailable, events will not be published")
		return nil
	}
	return publisher
}
