package pixiv

// AuthResponse is the token endpoint's reply.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// IllustsResponse represents one page of an author's illustration listing.
type IllustsResponse struct {
	Illusts []Illust `json:"illusts"`
	NextURL string   `json:"next_url"`
}

type Illust struct {
	ID             int64          `json:"id"`
	Title          string         `json:"title"`
	Caption        string         `json:"caption"`
	PageCount      int            `json:"page_count"`
	Tags           []IllustTag    `json:"tags"`
	User           IllustUser     `json:"user"`
	MetaSinglePage MetaSinglePage `json:"meta_single_page"`
	MetaPages      []MetaPage     `json:"meta_pages"`
}

type IllustTag struct {
	Name string `json:"name"`
}

type IllustUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type MetaSinglePage struct {
	OriginalImageURL string `json:"original_image_url"`
}

type MetaPage struct {
	ImageURLs PageImageURLs `json:"image_urls"`
}

type PageImageURLs struct {
	Original string `json:"original"`
}
