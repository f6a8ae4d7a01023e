package document

import (
	"github.com/localnerve/luvnest/internal/types"
)

// GalleryLayout selects how gallery images are arranged.
type GalleryLayout string

const (
	LayoutGrid     GalleryLayout = "grid"
	LayoutMasonry  GalleryLayout = "masonry"
	LayoutCarousel GalleryLayout = "carousel"
)

// RevealAnimation is the effect played when a surprise is opened.
type RevealAnimation string

const (
	RevealHearts   RevealAnimation = "hearts"
	RevealConfetti RevealAnimation = "confetti"
	RevealSparkle  RevealAnimation = "sparkle"
)

// StoryStyle steers AI story generation.
type StoryStyle string

const (
	StyleFairyTale      StoryStyle = "fairy-tale"
	StyleAdventure      StoryStyle = "adventure"
	StyleClassicRomance StoryStyle = "classic-romance"
)

type HeroData struct {
	PartnerName1  string `json:"partnerName1"`
	PartnerName2  string `json:"partnerName2"`
	Headline      string `json:"headline"`
	CoverImageURL string `json:"coverImageUrl,omitempty"`
}

type LoveLetterData struct {
	Title              string `json:"title"`
	Content            string `json:"content"`
	BackgroundAudioURL string `json:"backgroundAudioUrl,omitempty"`
}

type TimelineEvent struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

type TimelineData struct {
	Title              string          `json:"title"`
	Events             []TimelineEvent `json:"events"`
	BackgroundAudioURL string          `json:"backgroundAudioUrl,omitempty"`
}

type GalleryImage struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

type GalleryData struct {
	Title              string         `json:"title"`
	Images             []GalleryImage `json:"images"`
	Layout             GalleryLayout  `json:"layout"`
	BackgroundAudioURL string         `json:"backgroundAudioUrl,omitempty"`
}

type CountdownData struct {
	Title      string `json:"title"`
	TargetDate string `json:"targetDate"`
	Message    string `json:"message"`
}

type SurpriseData struct {
	Title           string          `json:"title"`
	HiddenMessage   string          `json:"hiddenMessage"`
	RevealAnimation RevealAnimation `json:"revealAnimation"`
}

type AIStoryData struct {
	Title            string     `json:"title"`
	StoryStyle       StoryStyle `json:"storyStyle"`
	GeneratedContent string     `json:"generatedContent,omitempty"`
	PromptDetails    string     `json:"promptDetails,omitempty"`
}

type MagazinePage struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl,omitempty"`
	Title    string `json:"title"`
	Content  string `json:"content"`
}

type MagazineData struct {
	Title      string         `json:"title"`
	CoverTitle string         `json:"coverTitle"`
	Pages      []MagazinePage `json:"pages"`
}

type BeMyValentineData struct {
	Question        string `json:"question"`
	AcceptanceQuote string `json:"acceptanceQuote"`
	YesButtonText   string `json:"yesButtonText"`
	NoButtonText    string `json:"noButtonText"`
}

func (*HeroData) Type() SectionType          { return TypeHero }
func (*LoveLetterData) Type() SectionType    { return TypeLoveLetter }
func (*TimelineData) Type() SectionType      { return TypeTimeline }
func (*GalleryData) Type() SectionType       { return TypeGallery }
func (*CountdownData) Type() SectionType     { return TypeCountdown }
func (*SurpriseData) Type() SectionType      { return TypeSurprise }
func (*AIStoryData) Type() SectionType       { return TypeAIStory }
func (*MagazineData) Type() SectionType      { return TypeMagazine }
func (*BeMyValentineData) Type() SectionType { return TypeBeMyValentine }

func (*HeroData) sectionData()          {}
func (*LoveLetterData) sectionData()    {}
func (*TimelineData) sectionData()      {}
func (*GalleryData) sectionData()       {}
func (*CountdownData) sectionData()     {}
func (*SurpriseData) sectionData()      {}
func (*AIStoryData) sectionData()       {}
func (*MagazineData) sectionData()      {}
func (*BeMyValentineData) sectionData() {}

func (*HeroData) Validate() error       { return nil }
func (*LoveLetterData) Validate() error { return nil }
func (*CountdownData) Validate() error  { return nil }

func (*BeMyValentineData) Validate() error { return nil }

func (d *TimelineData) Validate() error {
	ids := make([]string, len(d.Events))
	for i, e := range d.Events {
		ids[i] = e.ID
	}
	return uniqueItemIDs(TypeTimeline, "event", ids)
}

func (d *GalleryData) Validate() error {
	switch d.Layout {
	case LayoutGrid, LayoutMasonry, LayoutCarousel:
	default:
		return types.ValidationErrorf("gallery layout %q is not one of grid, masonry, carousel", d.Layout)
	}
	ids := make([]string, len(d.Images))
	for i, img := range d.Images {
		ids[i] = img.ID
	}
	return uniqueItemIDs(TypeGallery, "image", ids)
}

func (d *SurpriseData) Validate() error {
	switch d.RevealAnimation {
	case RevealHearts, RevealConfetti, RevealSparkle:
		return nil
	}
	return types.ValidationErrorf("surprise revealAnimation %q is not one of hearts, confetti, sparkle", d.RevealAnimation)
}

func (d *AIStoryData) Validate() error {
	switch d.StoryStyle {
	case StyleFairyTale, StyleAdventure, StyleClassicRomance:
		return nil
	}
	return types.ValidationErrorf("ai-story storyStyle %q is not one of fairy-tale, adventure, classic-romance", d.StoryStyle)
}

func (d *MagazineData) Validate() error {
	ids := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		ids[i] = p.ID
	}
	return uniqueItemIDs(TypeMagazine, "page", ids)
}

func uniqueItemIDs(t SectionType, item string, ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			return types.ValidationErrorf("%s %s is missing an id", t, item)
		}
		if _, dup := seen[id]; dup {
			return types.ValidationErrorf("%s %s id %q is not unique", t, item, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// normalize replaces nil lists with empty ones so the persisted shape stays
// stable and, when assignIDs is set, gives nested items submitted without an
// id a fresh one.
func normalize(d SectionData, assignIDs bool) {
	switch v := d.(type) {
	case *TimelineData:
		if v.Events == nil {
			v.Events = []TimelineEvent{}
		}
		for i := range v.Events {
			if v.Events[i].ID == "" && assignIDs {
				v.Events[i].ID = NewID()
			}
		}
	case *GalleryData:
		if v.Images == nil {
			v.Images = []GalleryImage{}
		}
		for i := range v.Images {
			if v.Images[i].ID == "" && assignIDs {
				v.Images[i].ID = NewID()
			}
		}
	case *MagazineData:
		if v.Pages == nil {
			v.Pages = []MagazinePage{}
		}
		for i := range v.Pages {
			if v.Pages[i].ID == "" && assignIDs {
				v.Pages[i].ID = NewID()
			}
		}
	}
}
