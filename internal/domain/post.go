package domain

// Post is one illustration listing entry fetched from the remote source.
// AssetURLs holds the original-resolution image URL for every page of the
// post, in page order; single-page posts have exactly one entry. The list is
// immutable once the post leaves the source client.
type Post struct {
	ID        int64
	Title     string
	Caption   string
	Author    string
	AssetURLs []string
	Tags      []string
}

// UploadTags returns the tag list submitted with each of the post's assets:
// the native tags followed by the author name. Duplicates are kept as-is.
func (p *Post) UploadTags() []string {
	tags := make([]string, 0, len(p.Tags)+1)
	tags = append(tags, p.Tags...)
	return append(tags, p.Author)
}

// UploadResult is the outcome of publishing one asset. A nil ResultID means
// the asset failed somewhere in its pipeline and was recorded for later
// reconciliation.
type UploadResult struct {
	ResultID *int64 `json:"result"`
}

// PostOutcome summarizes one post's fan-out: how many assets published, how
// many failed, and whether a failure manifest was written.
type PostOutcome struct {
	Uploaded        int
	Failed          int
	ManifestWritten bool
}

// RunStats aggregates per-run counters reported by the scheduler.
type RunStats struct {
	Authors          int
	Posts            int
	AssetsUploaded   int
	AssetsFailed     int
	ManifestsWritten int
}
