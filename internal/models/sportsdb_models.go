package models

type SportsDBTeamsResponse struct {
	Teams []SportsDBTeam `json:"teams"`
}

type SportsDBTeam struct {
	IDTeam   string `json:"idTeam"`
	Name     string `json:"strTeam"`
	League   string `json:"strLeague"`
	Stadium  string `json:"strStadium"`
	Website  string `json:"strWebsite"`
	Location string `json:"strLocation"`
}

type SportsDBEventsResponse struct {
	Results []SportsDBEvent `json:"results"`
}

type SportsDBEvent struct {
	IDEvent    string `json:"idEvent"`
	Event      string `json:"strEvent"`
	League     string `json:"strLeague"`
	HomeTeam   string `json:"strHomeTeam"`
	AwayTeam   string `json:"strAwayTeam"`
	HomeScore  string `json:"intHomeScore"`
	AwayScore  string `json:"intAwayScore"`
	DateEvent  string `json:"dateEvent"`
	TimeEvent  string `json:"strTime"`
	Timestamp  string `json:"strTimestamp"`
	VideoURL   string `json:"strVideo"`
	ThumbsURL  string `json:"strThumb"`
	PostponedF string `json:"strPostponed"`
}
