package profile

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ThirdPartyProfile is the structured payload produced by a profile fetcher
// (for example a LinkedIn scrape). Every field is optional.
type ThirdPartyProfile struct {
	Headline        *string           `json:"headline" validate:"omitempty,max=300"`
	About           *string           `json:"about" validate:"omitempty,max=20000"`
	Experience      []PayloadPosition `json:"experience" validate:"omitempty,max=100,dive"`
	Skills          []string          `json:"skills" validate:"omitempty,max=300,dive,max=200"`
	Education       []PayloadSchool   `json:"education" validate:"omitempty,max=50,dive"`
	Followers       *int              `json:"followers" validate:"omitempty,min=0"`
	Activity        []PayloadActivity `json:"activity" validate:"omitempty,max=100,dive"`
	ProfilePicture  *string           `json:"profilePicture" validate:"omitempty,url"`
	BackgroundImage *string           `json:"backgroundImage" validate:"omitempty,url"`
}

type PayloadPosition struct {
	Title       string `json:"title" validate:"max=300"`
	Company     string `json:"company" validate:"max=300"`
	StartDate   string `json:"startDate" validate:"max=40"`
	EndDate     string `json:"endDate" validate:"max=40"`
	Description string `json:"description" validate:"max=10000"`
}

type PayloadSchool struct {
	School    string `json:"school" validate:"max=300"`
	Degree    string `json:"degree" validate:"max=300"`
	Field     string `json:"field" validate:"max=300"`
	StartDate string `json:"startDate" validate:"max=40"`
	EndDate   string `json:"endDate" validate:"max=40"`
}

type PayloadActivity struct {
	Title string `json:"title" validate:"max=500"`
	Text  string `json:"text" validate:"max=10000"`
	URL   string `json:"url" validate:"omitempty,url"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FromPayload validates and maps a third-party profile. A field is available
// only when it is non-null and, for sequences, non-empty.
func FromPayload(p ThirdPartyProfile) (Input, error) {
	p = clearBlankURLs(p)
	if err := validate.Struct(p); err != nil {
		return Input{}, payloadError(err)
	}

	values := make(map[SectionName]*Value, SectionCount)
	if p.Headline != nil {
		values[Headline] = TextValue(*p.Headline)
	}
	if p.About != nil {
		values[About] = TextValue(*p.About)
	}
	if p.Experience != nil {
		entries := make([]Entry, 0, len(p.Experience))
		for _, pos := range p.Experience {
			entries = append(entries, Entry{
				Title:        strings.TrimSpace(pos.Title),
				Organization: strings.TrimSpace(pos.Company),
				Start:        strings.TrimSpace(pos.StartDate),
				End:          strings.TrimSpace(pos.EndDate),
				Description:  strings.TrimSpace(pos.Description),
			})
		}
		values[Experience] = EntriesValue(entries)
	}
	if p.Skills != nil {
		values[Skills] = ListValue(p.Skills)
	}
	if p.Education != nil {
		entries := make([]Entry, 0, len(p.Education))
		for _, s := range p.Education {
			title := strings.TrimSpace(s.Degree)
			if field := strings.TrimSpace(s.Field); field != "" {
				if title != "" {
					title += ", "
				}
				title += field
			}
			entries = append(entries, Entry{
				Title:        title,
				Organization: strings.TrimSpace(s.School),
				Start:        strings.TrimSpace(s.StartDate),
				End:          strings.TrimSpace(s.EndDate),
			})
		}
		values[Education] = EntriesValue(entries)
	}
	if p.Followers != nil {
		values[Followers] = CountValue(*p.Followers)
	}
	if p.Activity != nil {
		entries := make([]Entry, 0, len(p.Activity))
		for _, a := range p.Activity {
			desc := strings.TrimSpace(a.Text)
			if a.URL != "" {
				if desc != "" {
					desc += "\n"
				}
				desc += a.URL
			}
			entries = append(entries, Entry{
				Title:       strings.TrimSpace(a.Title),
				Description: desc,
			})
		}
		values[Activity] = EntriesValue(entries)
	}
	if p.ProfilePicture != nil {
		values[ProfilePicture] = TextValue(*p.ProfilePicture)
	}
	if p.BackgroundImage != nil {
		values[BackgroundImage] = TextValue(*p.BackgroundImage)
	}
	return NewInput(SourcePayload, values), nil
}

// clearBlankURLs treats blank image and activity links as absent so the url
// check only applies to values that were actually given.
func clearBlankURLs(p ThirdPartyProfile) ThirdPartyProfile {
	p.ProfilePicture = nilIfBlank(p.ProfilePicture)
	p.BackgroundImage = nilIfBlank(p.BackgroundImage)
	if p.Activity != nil {
		activity := make([]PayloadActivity, len(p.Activity))
		for i, a := range p.Activity {
			a.URL = strings.TrimSpace(a.URL)
			activity[i] = a
		}
		p.Activity = activity
	}
	return p
}

func nilIfBlank(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

func payloadError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Reason: err.Error()}
	}
	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "ThirdPartyProfile.")
	reason := fmt.Sprintf("failed %q", fe.Tag())
	if fe.Param() != "" {
		reason = fmt.Sprintf("failed %q (%s)", fe.Tag(), fe.Param())
	}
	if len(verrs) > 1 {
		reason += fmt.Sprintf(" and %d more", len(verrs)-1)
	}
	return &ValidationError{Field: field, Reason: reason}
}
