package notifier

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "gopkg.in/mail.v2"

	"cine-scraper/config"
	"cine-scraper/movie"
	"cine-scraper/stats"
)

func newTestNotifier(t *testing.T) (*EmailNotifier, *[]*gomail.Message) {
	t.Helper()
	log, _ := test.NewNullLogger()
	n, err := NewEmailNotifier(config.EmailConfig{
		SMTPHost:       "smtp.test",
		SMTPPort:       2525,
		SenderEmail:    "scraper@example.com",
		RecipientEmail: "me@example.com",
	}, log)
	require.NoError(t, err)

	var sent []*gomail.Message
	n.send = func(m *gomail.Message) error {
		sent = append(sent, m)
		return nil
	}
	return n, &sent
}

func TestNewEmailNotifier_RequiresConfig(t *testing.T) {
	_, err := NewEmailNotifier(config.EmailConfig{SMTPHost: "smtp.test"}, nil)
	assert.Error(t, err)
}

func TestNotifyRun(t *testing.T) {
	n, sent := newTestNotifier(t)
	err := n.NotifyRun(RunReport{
		BaseURL:  "https://movies.test/",
		Criteria: "imdb>=7.0",
		Pages:    3,
		Movies: []movie.Record{
			{Title: "Heat", Link: "https://movies.test/heat/", Genre: "Crime", Director: "Michael Mann", Release: "1995", Duration: "2h 50m", IMDb: "8.3"},
		},
		Stopped: "listing page 4: HTTP 503",
	})
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	m := (*sent)[0]
	assert.Equal(t, []string{"Movie Scraper: 1 movies matching imdb>=7.0"}, m.GetHeader("Subject"))
	assert.Equal(t, []string{"me@example.com"}, m.GetHeader("To"))
}

func TestNotifyRun_NoMovies(t *testing.T) {
	n, sent := newTestNotifier(t)
	require.NoError(t, n.NotifyRun(RunReport{BaseURL: "https://movies.test/"}))
	assert.Empty(t, *sent)
}

func TestNotifyRun_SendFailure(t *testing.T) {
	n, _ := newTestNotifier(t)
	n.send = func(*gomail.Message) error { return errors.New("connection refused") }
	err := n.NotifyRun(RunReport{Movies: []movie.Record{{Title: "x", IMDb: "7"}}})
	assert.ErrorContains(t, err, "connection refused")
}

func TestBuildMessage(t *testing.T) {
	n, _ := newTestNotifier(t)
	m, err := n.buildMessage(RunReport{
		BaseURL:  "https://movies.test/",
		Criteria: "imdb>=7.0 genre=drama",
		Pages:    1,
		Movies: []movie.Record{
			{Title: "Past Lives", Link: "https://movies.test/past-lives/", Genre: "Drama", Actors: "Greta Lee", Director: "Celine Song",
				Country: "United States", Duration: "106 min", Release: "2023", IMDb: "7.8"},
		},
	}, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "March 1, 2024 at 10:00 AM")
	assert.Contains(t, out, "Past Lives")
	assert.Contains(t, out, "Celine Song")
	assert.NotContains(t, out, "stopped early")
	for _, section := range []string{"Top actors", "Top countries", "IMDb ratings", "Release years", "Durations"} {
		assert.Contains(t, out, section)
	}
}

func TestPlainSummary(t *testing.T) {
	out := plainSummary(stats.Summarize([]movie.Record{
		{Genre: "Crime", Actors: "Al Pacino, Robert De Niro", Director: "Michael Mann", Country: "United States", Duration: "2h 50m", Release: "1995", IMDb: "8.3"},
		{Genre: "Drama", Actors: "Greta Lee", Director: "Celine Song", Country: "United States, South Korea", Duration: "106 min", Release: "2023", IMDb: "7.8"},
	}, stats.TopN))

	assert.Contains(t, out, "Mean IMDb: 8.05")
	assert.Contains(t, out, "Top actors:\n  Al Pacino (1)")
	assert.Contains(t, out, "Top countries:\n  United States (2)\n  South Korea (1)")
	assert.Contains(t, out, "  7-8 (1)\n  8-9 (1)")
	assert.Contains(t, out, "Release years:\n  1995 (1)\n  2023 (1)")
	assert.Contains(t, out, "Durations: 2 movie(s), 138 minutes on average, correlation with IMDb 1.00")
}

func TestSendTestEmail(t *testing.T) {
	n, sent := newTestNotifier(t)
	require.NoError(t, n.SendTestEmail())
	require.Len(t, *sent, 1)
	assert.Equal(t, []string{"Movie Scraper: test email"}, (*sent)[0].GetHeader("Subject"))
}
