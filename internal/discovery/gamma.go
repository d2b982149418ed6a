package discovery

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// questionPattern matches BTC up/down question windows like "2:45PM-3:00PM".
var questionPattern = regexp.MustCompile(`\d{1,2}:\d{2}(AM|PM)-\d{1,2}:\d{2}(AM|PM)`)

// gammaEvent is the wire shape of one entry from GET /events?series_id=...
type gammaEvent struct {
	ID      string        `json:"id"`
	Markets []gammaMarket `json:"markets"`
}

// gammaMarket is the wire shape of a single nested market. Outcomes and
// clobTokenIds arrive as JSON-encoded arrays within a JSON string, matching
// the Gamma API's own encoding.
type gammaMarket struct {
	ID           string `json:"id"`
	ConditionID  string `json:"conditionId"`
	Question     string `json:"question"`
	EndDate      string `json:"endDate"`
	Outcomes     string `json:"outcomes"`
	ClobTokenIDs string `json:"clobTokenIds"`
}

// Candidate is a parsed, not-yet-classified market pulled off the Gamma feed:
// it has passed the question-pattern and outcome-shape filters but the
// Registry still decides admission.
type Candidate struct {
	ID        string
	Question  string
	UpToken   string
	DownToken string
	Expiry    time.Time
}

// isBTCUpDownQuestion reports whether a question string belongs to the BTC
// up/down family: a time-window pattern plus a bitcoin/btc mention.
func isBTCUpDownQuestion(question string) bool {
	if !questionPattern.MatchString(question) {
		return false
	}
	lower := strings.ToLower(question)
	return strings.Contains(lower, "bitcoin") || strings.Contains(lower, "btc")
}

// parseCandidate converts a gammaMarket into a Candidate, or returns false if
// the market doesn't qualify for the BTC up/down family: wrong question
// shape, not exactly two Up/Down outcomes, or unparseable fields.
func parseCandidate(m gammaMarket) (Candidate, bool) {
	if !isBTCUpDownQuestion(m.Question) {
		return Candidate{}, false
	}

	var outcomes []string
	if err := json.Unmarshal([]byte(m.Outcomes), &outcomes); err != nil {
		return Candidate{}, false
	}
	var tokenIDs []string
	if err := json.Unmarshal([]byte(m.ClobTokenIDs), &tokenIDs); err != nil {
		return Candidate{}, false
	}
	if len(outcomes) != 2 || len(tokenIDs) != 2 {
		return Candidate{}, false
	}

	upToken, downToken, ok := matchUpDown(outcomes, tokenIDs)
	if !ok {
		return Candidate{}, false
	}

	expiry, err := time.Parse(time.RFC3339, m.EndDate)
	if err != nil {
		return Candidate{}, false
	}

	id := m.ConditionID
	if id == "" {
		id = m.ID
	}

	return Candidate{
		ID:        id,
		Question:  m.Question,
		UpToken:   upToken,
		DownToken: downToken,
		Expiry:    expiry,
	}, true
}

// matchUpDown pairs the two outcome labels (case-insensitive "Up"/"Down")
// with their corresponding token ids by index.
func matchUpDown(outcomes, tokenIDs []string) (upToken, downToken string, ok bool) {
	for i, outcome := range outcomes {
		switch strings.ToLower(outcome) {
		case "up":
			upToken = tokenIDs[i]
		case "down":
			downToken = tokenIDs[i]
		}
	}
	return upToken, downToken, upToken != "" && downToken != ""
}

func (e gammaEvent) candidates() []Candidate {
	out := make([]Candidate, 0, len(e.Markets))
	for _, m := range e.Markets {
		if c, ok := parseCandidate(m); ok {
			out = append(out, c)
		}
	}
	return out
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s (%s)", c.Question, c.ID)
}
