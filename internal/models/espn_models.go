package models

type ESPNNewsResponse struct {
	Header   string        `json:"header"`
	Articles []ESPNArticle `json:"articles"`
}

type ESPNArticle struct {
	Headline    string `json:"headline"`
	Description string `json:"description"`
	Published   string `json:"published"`
	Type        string `json:"type"`
	Links       struct {
		Web struct {
			Href string `json:"href"`
		} `json:"web"`
	} `json:"links"`
	Categories []struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	} `json:"categories"`
}
