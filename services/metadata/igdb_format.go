package metadata

import (
	"bytes"
	"encoding/json"
	"strings"

	"reviewverso/models"
)

const (
	igdbImageBaseURL = "https://images.igdb.com/igdb/image/upload/"
	igdbCoverSize    = "cover_big"
	igdbBackdropSize = "screenshot_big"
)

// IGDBGame is an IGDB game as requested by gameFields.
type IGDBGame struct {
	ID                flexInt           `json:"id"`
	Name              string            `json:"name"`
	Summary           string            `json:"summary"`
	Storyline         string            `json:"storyline"`
	Cover             igdbImage         `json:"cover"`
	Screenshots       []igdbImage       `json:"screenshots"`
	Artworks          []igdbImage       `json:"artworks"`
	Rating            flexFloat         `json:"rating"`
	RatingCount       flexInt           `json:"rating_count"`
	FirstReleaseDate  flexInt           `json:"first_release_date"`
	Genres            []namedRef        `json:"genres"`
	Platforms         []namedRef        `json:"platforms"`
	InvolvedCompanies []igdbInvolvement `json:"involved_companies"`
}

// igdbImage decodes an expanded image object; bare image IDs decode empty.
type igdbImage struct {
	ImageID string
}

func (i *igdbImage) UnmarshalJSON(b []byte) error {
	*i = igdbImage{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	var obj struct {
		ImageID flexText `json:"image_id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil
	}
	i.ImageID = strings.TrimSpace(string(obj.ImageID))
	return nil
}

type igdbInvolvement struct {
	Company   namedRef `json:"company"`
	Developer bool     `json:"developer"`
	Publisher bool     `json:"publisher"`
}

// buildIGDBImage returns the absolute URL for an IGDB image id, or nil.
func buildIGDBImage(imageID, size string) *string {
	imageID = strings.TrimSpace(imageID)
	if imageID == "" {
		return nil
	}
	return stringPtr(igdbImageBaseURL + "t_" + size + "/" + imageID + ".jpg")
}

// FormatGame maps a raw IGDB game onto the display model. IGDB rates on a
// 0–100 scale; vote_average is rescaled to 0–10.
func FormatGame(raw IGDBGame) models.MediaItem {
	avg := vote(raw.Rating, 10)
	year, date := unixYear(raw.FirstReleaseDate)

	var backdrop *string
	for _, img := range append(append([]igdbImage{}, raw.Screenshots...), raw.Artworks...) {
		if backdrop = buildIGDBImage(img.ImageID, igdbBackdropSize); backdrop != nil {
			break
		}
	}

	developers := make([]string, 0, len(raw.InvolvedCompanies))
	for _, ic := range raw.InvolvedCompanies {
		if ic.Developer && ic.Company.Name != "" {
			developers = append(developers, ic.Company.Name)
		}
	}

	return models.MediaItem{
		ID:                   raw.ID.String(),
		Type:                 models.MediaTypeVideogame,
		Title:                strings.TrimSpace(raw.Name),
		PosterPath:           raw.Cover.ImageID,
		PosterURL:            buildIGDBImage(raw.Cover.ImageID, igdbCoverSize),
		BackdropURL:          backdrop,
		ReleaseDate:          date,
		ReleaseYear:          year,
		VoteAverage:          avg,
		FormattedVoteAverage: formatVote(avg),
		VoteScale:            scaleTen,
		VoteCount:            int(raw.RatingCount.Value),
		Overview:             firstNonEmpty(raw.Summary, raw.Storyline),
		Genres:               names(raw.Genres),
		Platforms:            names(raw.Platforms),
		Developers:           developers,
	}
}

func formatGames(raw []IGDBGame) []models.MediaItem {
	out := make([]models.MediaItem, 0, len(raw))
	for _, g := range raw {
		out = append(out, FormatGame(g))
	}
	return out
}
