package notifier

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	gomail "gopkg.in/mail.v2"

	"cine-scraper/config"
	"cine-scraper/movie"
	"cine-scraper/stats"
)

var reportTemplate = template.Must(template.New("email").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Movie Scraper - Run Report</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; }
        h1 { color: #e50914; }
        h2 { color: #0071c5; margin-top: 30px; }
        table { width: 100%; border-collapse: collapse; margin-bottom: 20px; }
        th { background-color: #f4f4f4; text-align: left; padding: 10px; }
        td { padding: 10px; border-bottom: 1px solid #ddd; }
        .count { font-weight: bold; color: #e50914; }
        .warning { color: #b26a00; }
        .footer { font-size: 12px; color: #666; margin-top: 50px; text-align: center; }
    </style>
</head>
<body>
    <h1>Movie Scraper - Run Report</h1>
    <p>Run finished on {{.Date}} for <a href="{{.BaseURL}}">{{.BaseURL}}</a> ({{.Pages}} listing page(s)).</p>
    <p>Filters: {{.Criteria}}</p>
    <p>Movies found: <span class="count">{{.Summary.Movies}}</span>{{if .Summary.Movies}}, mean IMDb {{printf "%.2f" .Summary.MeanIMDb}}{{end}}</p>
    {{if .Stopped}}<p class="warning">The run stopped early: {{.Stopped}}</p>{{end}}

    {{if .Movies}}
    <h2>Movies</h2>
    <table>
        <tr><th>Title</th><th>Genre</th><th>Release</th><th>Duration</th><th>IMDb</th></tr>
        {{range .Movies}}
        <tr>
            <td><a href="{{.Link}}">{{.Title}}</a></td>
            <td>{{.Genre}}</td>
            <td>{{.Release}}</td>
            <td>{{.Duration}}</td>
            <td>{{.IMDb}}</td>
        </tr>
        {{end}}
    </table>
    {{end}}

    {{if .Summary.TopGenres}}
    <h2>Top genres</h2>
    <table>
        {{range .Summary.TopGenres}}<tr><td>{{.Name}}</td><td>{{.N}}</td></tr>{{end}}
    </table>
    {{end}}

    {{if .Summary.TopActors}}
    <h2>Top actors</h2>
    <table>
        {{range .Summary.TopActors}}<tr><td>{{.Name}}</td><td>{{.N}}</td></tr>{{end}}
    </table>
    {{end}}

    {{if .Summary.TopDirectors}}
    <h2>Top directors</h2>
    <table>
        {{range .Summary.TopDirectors}}<tr><td>{{.Name}}</td><td>{{.N}}</td></tr>{{end}}
    </table>
    {{end}}

    {{if .Summary.TopCountries}}
    <h2>Top countries</h2>
    <table>
        {{range .Summary.TopCountries}}<tr><td>{{.Name}}</td><td>{{.N}}</td></tr>{{end}}
    </table>
    {{end}}

    <h2>IMDb ratings</h2>
    <table>
        <tr><th>Rating</th><th>Movies</th></tr>
        {{range .Summary.Histogram}}<tr><td>{{.Name}}</td><td>{{.N}}</td></tr>{{end}}
    </table>

    {{if .Summary.ReleaseYears}}
    <h2>Release years</h2>
    <table>
        <tr><th>Year</th><th>Movies</th></tr>
        {{range $year, $n := .Summary.ReleaseYears}}<tr><td>{{$year}}</td><td>{{$n}}</td></tr>{{end}}
    </table>
    {{end}}

    {{if .Summary.Durations}}
    <h2>Durations</h2>
    <p>{{len .Summary.Durations}} movie(s) with a known duration, {{printf "%.0f" .Summary.MeanDuration}} minutes on average.
    Correlation between duration and IMDb rating: {{printf "%.2f" .Summary.DurationIMDbCorrelation}}.</p>
    {{end}}

    <div class="footer">
        <p>This is an automated email from the movie scraper. Please do not reply.</p>
    </div>
</body>
</html>
`))

// RunReport is what the notifier tells about a finished run.
type RunReport struct {
	BaseURL  string
	Criteria string
	Pages    int
	Movies   []movie.Record
	// Stopped is the reason the run ended early, empty when it completed.
	Stopped string
}

// EmailNotifier handles sending email notifications
type EmailNotifier struct {
	cfg  config.EmailConfig
	log  *logrus.Logger
	send func(m *gomail.Message) error
}

// NewEmailNotifier creates a notifier that sends through cfg's SMTP server.
func NewEmailNotifier(cfg config.EmailConfig, log *logrus.Logger) (*EmailNotifier, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("email notifications need EMAIL_SMTP_HOST and EMAIL_RECIPIENT")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	n := &EmailNotifier{cfg: cfg, log: log}
	n.send = func(m *gomail.Message) error {
		// Mailtrap style auth: the username is "api", the password the API token
		d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, "api", cfg.SenderPassword)
		return d.DialAndSend(m)
	}
	return n, nil
}

// NotifyRun sends the report of a finished run. Runs without movies are not
// reported.
func (n *EmailNotifier) NotifyRun(r RunReport) error {
	if len(r.Movies) == 0 {
		n.log.Debug("No movies to notify about")
		return nil
	}
	m, err := n.buildMessage(r, time.Now())
	if err != nil {
		return err
	}
	if err := n.send(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	n.log.WithFields(logrus.Fields{"recipient": n.cfg.RecipientEmail, "movies": len(r.Movies)}).Info("Email notification sent")
	return nil
}

// SendTestEmail verifies the SMTP settings with a short message.
func (n *EmailNotifier) SendTestEmail() error {
	n.log.WithFields(logrus.Fields{
		"host":      n.cfg.SMTPHost,
		"port":      n.cfg.SMTPPort,
		"sender":    n.cfg.SenderEmail,
		"token":     n.cfg.MaskedPassword(),
		"recipient": n.cfg.RecipientEmail,
	}).Info("Sending test email")

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.SenderEmail)
	m.SetHeader("To", n.cfg.RecipientEmail)
	m.SetHeader("Subject", "Movie Scraper: test email")
	m.SetBody("text/plain", "If you can read this, the movie scraper can send its run reports.")
	if err := n.send(m); err != nil {
		return fmt.Errorf("failed to send test email: %w", err)
	}
	return nil
}

func (n *EmailNotifier) buildMessage(r RunReport, now time.Time) (*gomail.Message, error) {
	summary := stats.Summarize(r.Movies, stats.TopN)
	data := struct {
		RunReport
		Date    string
		Summary stats.Summary
	}{
		RunReport: r,
		Date:      now.Format("January 2, 2006 at 3:04 PM"),
		Summary:   summary,
	}

	var body bytes.Buffer
	if err := reportTemplate.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("failed to render email template: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.SenderEmail)
	m.SetHeader("To", n.cfg.RecipientEmail)
	m.SetHeader("Subject", fmt.Sprintf("Movie Scraper: %d movies matching %s", len(r.Movies), r.Criteria))

	plain := fmt.Sprintf(
		"Movie Scraper Run Report\n\n"+
			"Run finished on %s for %s (%d listing pages).\n"+
			"Filters: %s\n"+
			"Movies found: %d\n\n"+
			"This is an automated email from the movie scraper. Please do not reply.",
		data.Date, r.BaseURL, r.Pages, r.Criteria, len(r.Movies))
	if r.Stopped != "" {
		plain += "\n\nThe run stopped early: " + r.Stopped
	}
	plain += "\n\n" + plainSummary(summary)

	m.SetBody("text/plain", plain)
	m.AddAlternative("text/html", body.String())
	return m, nil
}

func plainSummary(s stats.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Mean IMDb: %.2f\n", s.MeanIMDb)
	ranking := func(title string, counts []stats.Count) {
		if len(counts) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s:\n", title)
		for _, c := range counts {
			fmt.Fprintf(&b, "  %s (%d)\n", c.Name, c.N)
		}
	}
	ranking("Top genres", s.TopGenres)
	ranking("Top actors", s.TopActors)
	ranking("Top directors", s.TopDirectors)
	ranking("Top countries", s.TopCountries)
	ranking("IMDb ratings", s.Histogram())

	if len(s.ReleaseYears) > 0 {
		years := make([]int, 0, len(s.ReleaseYears))
		for y := range s.ReleaseYears {
			years = append(years, y)
		}
		sort.Ints(years)
		b.WriteString("\nRelease years:\n")
		for _, y := range years {
			fmt.Fprintf(&b, "  %d (%d)\n", y, s.ReleaseYears[y])
		}
	}
	if len(s.Durations) > 0 {
		fmt.Fprintf(&b, "\nDurations: %d movie(s), %.0f minutes on average, correlation with IMDb %.2f\n",
			len(s.Durations), s.MeanDuration(), s.DurationIMDbCorrelation)
	}
	return b.String()
}
