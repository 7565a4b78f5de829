package reddit

// Wire types for the Reddit data API. Only the fields the client reads
// are declared.

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type listingResponse struct {
	Data struct {
		Children []listingChild `json:"children"`
	} `json:"data"`
}

type listingChild struct {
	Kind string      `json:"kind"`
	Data listingPost `json:"data"`
}

type listingPost struct {
	ID         string  `json:"id"`
	Subreddit  string  `json:"subreddit"`
	Title      string  `json:"title"`
	SelfText   string  `json:"selftext"`
	Permalink  string  `json:"permalink"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
}

type commentChild struct {
	Kind string `json:"kind"`
	Data struct {
		Body string `json:"body"`
	} `json:"data"`
}

type commentListing struct {
	Data struct {
		Children []commentChild `json:"children"`
	} `json:"data"`
}

type aboutResponse struct {
	Data struct {
		DisplayName string `json:"display_name"`
		Over18      bool   `json:"over18"`
	} `json:"data"`
}
