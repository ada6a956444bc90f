package scoring

import (
	"ats-backend/internal/completeness"
	"ats-backend/internal/profile"
)

func reportFor(names ...profile.SectionName) (profile.Input, completeness.Report) {
	values := map[profile.SectionName]*profile.Value{}
	for _, n := range names {
		switch n {
		case profile.Skills:
			values[n] = profile.ListValue([]string{"Go", "PostgreSQL", "Kubernetes"})
		case profile.Experience:
			values[n] = profile.EntriesValue([]profile.Entry{{Title: "Backend Engineer", Organization: "Acme", Start: "2020", End: "present", Description: "Built billing APIs"}})
		case profile.Followers:
			values[n] = profile.CountValue(250)
		default:
			values[n] = profile.TextValue(string(n) + " text")
		}
	}
	in := profile.NewInput(profile.SourceText, values)
	return in, completeness.Evaluate(in)
}

// sixOfNine leaves experience, skills and activity missing.
func sixOfNine() (profile.Input, completeness.Report) {
	return reportFor(profile.Headline, profile.About, profile.Education, profile.Followers, profile.ProfilePicture, profile.BackgroundImage)
}

func allNine() (profile.Input, completeness.Report) {
	return reportFor(profile.AllSections()...)
}
