package models

// SessionType identifies a timed event within a race weekend
type SessionType string

const (
	SessionPractice1        SessionType = "practice_1"
	SessionPractice2        SessionType = "practice_2"
	SessionPractice3        SessionType = "practice_3"
	SessionQualifying       SessionType = "qualifying"
	SessionSprintQualifying SessionType = "sprint_qualifying"
	SessionSprint           SessionType = "sprint"
	SessionRace             SessionType = "race"
)

// SessionStatus is the upstream lifecycle label of a session
type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusLive      SessionStatus = "live"
	SessionStatusFinished  SessionStatus = "finished"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// Circuit describes the venue of a round
type Circuit struct {
	Name        string `json:"name"`
	Lat         string `json:"lat,omitempty"`
	Long        string `json:"long,omitempty"`
	Locality    string `json:"locality,omitempty"`
	Country     string `json:"country,omitempty"`
	Laps        int32  `json:"laps,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

// SessionResult is one classified line of a session, supplied read-only by the content service
type SessionResult struct {
	Position     int32  `json:"position"` // 1-based
	DriverNumber int32  `json:"driver_number,omitempty"`
	DriverName   string `json:"driver_name"`
	DriverCode   string `json:"driver_code,omitempty"`
	Team         string `json:"team"`
	Time         string `json:"time"` // display string, e.g. "1:31:44.742" or "+5.123s"
	Laps         int32  `json:"laps,omitempty"`
	Points       int32  `json:"points,omitempty"`
}

// Session is a discrete timed event within a round
type Session struct {
	Type       SessionType     `json:"type"`
	Date       int64           `json:"date"` // epoch seconds
	IsLive     bool            `json:"is_live"`
	Status     SessionStatus   `json:"status,omitempty"`
	TotalLaps  *int32          `json:"total_laps,omitempty"`
	CurrentLap *int32          `json:"current_lap,omitempty"`
	Results    []SessionResult `json:"results,omitempty"`
}

// Round is one race weekend within a season. Sessions keep the schedule order of the upstream feed.
type Round struct {
	RoundID   int32     `json:"round_id"`
	Name      string    `json:"name"`
	Season    int32     `json:"season,omitempty"`
	Circuit   Circuit   `json:"circuit"`
	FirstDate int64     `json:"first_date"` // epoch seconds
	EndDate   int64     `json:"end_date"`   // epoch seconds
	Sessions  []Session `json:"sessions"`
}

// OngoingOrUpcoming reports whether the round has not ended at now (epoch seconds)
func (r Round) OngoingOrUpcoming(now int64) bool {
	return r.EndDate >= now
}

// LiveSessionCount returns how many sessions of the round are flagged live
func (r Round) LiveSessionCount() int {
	n := 0
	for _, s := range r.Sessions {
		if s.IsLive {
			n++
		}
	}
	return n
}

// Metadata accompanies every content service response
type Metadata struct {
	Date   int64 `json:"date"`
	Cached bool  `json:"cached"`
}

// RoundsResponse is the body of GET /content/v1/seasons/{year}/rounds
type RoundsResponse struct {
	Metadata Metadata      `json:"metadata"`
	Result   *RoundsResult `json:"result"`
}

// RoundsResult holds the rounds of one season in schedule order
type RoundsResult struct {
	Season int32   `json:"season"`
	Rounds []Round `json:"rounds"`
}

// ErrorResponse is the JSON error body served by the HTTP surface
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
