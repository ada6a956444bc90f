package profile

import (
	"errors"
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestFromPayloadAvailability(t *testing.T) {
	in, err := FromPayload(ThirdPartyProfile{
		Headline:        strPtr("Data Engineer"),
		About:           strPtr("   "),
		Experience:      []PayloadPosition{{Title: "Engineer", Company: "Initech", StartDate: "2021"}},
		Skills:          []string{},
		Education:       []PayloadSchool{{School: "MIT", Degree: "BSc", Field: "Physics"}},
		Followers:       intPtr(0),
		Activity:        []PayloadActivity{{URL: " https://example.com/post/1 "}},
		ProfilePicture:  strPtr(""),
		BackgroundImage: strPtr("   "),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	present := map[SectionName]bool{}
	for _, name := range AllSections() {
		present[name] = in.Section(name).Present()
	}
	want := map[SectionName]bool{
		Headline:        true,
		About:           false,
		Experience:      true,
		Skills:          false,
		Education:       true,
		Followers:       true,
		Activity:        true,
		ProfilePicture:  false,
		BackgroundImage: false,
	}
	for name, w := range want {
		if present[name] != w {
			t.Fatalf("%s present = %v, want %v", name, present[name], w)
		}
	}
	if got := in.Section(Activity).Entries[0].Description; got != "https://example.com/post/1" {
		t.Fatalf("activity description = %q", got)
	}
	if got := in.Section(Education).Entries[0].Title; got != "BSc, Physics" {
		t.Fatalf("education title = %q", got)
	}
	if in.Source() != SourcePayload {
		t.Fatalf("unexpected source %q", in.Source())
	}
}

func TestFromPayloadValidation(t *testing.T) {
	cases := []struct {
		name  string
		p     ThirdPartyProfile
		field string
	}{
		{"bad picture url", ThirdPartyProfile{ProfilePicture: strPtr("not a url")}, "profilePicture"},
		{"negative followers", ThirdPartyProfile{Followers: intPtr(-1)}, "followers"},
		{"long title", ThirdPartyProfile{Experience: []PayloadPosition{{Title: strings.Repeat("x", 301)}}}, "experience[0].title"},
		{"long headline", ThirdPartyProfile{Headline: strPtr(strings.Repeat("h", 301))}, "headline"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromPayload(tc.p)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("field = %q, want %q", verr.Field, tc.field)
			}
		})
	}
}

func TestFromPayloadEmptyIsAllNull(t *testing.T) {
	in, err := FromPayload(ThirdPartyProfile{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range AllSections() {
		if in.Section(name) != nil {
			t.Fatalf("expected %s nil", name)
		}
	}
}
