package entity

import "strings"

// Sport is a coached sport. Values are stored and sent upstream by name.
type Sport string

const (
	SportRunning    Sport = "RUNNING"
	SportSwimming   Sport = "SWIMMING"
	SportCycling    Sport = "CYCLING"
	SportFitness    Sport = "FITNESS"
	SportBasketball Sport = "BASKETBALL"
	SportFootball   Sport = "FOOTBALL"
	SportTennis     Sport = "TENNIS"
	SportBadminton  Sport = "BADMINTON"
	SportYoga       Sport = "YOGA"
	SportDancing    Sport = "DANCING"
)

var sportLabels = map[Sport]string{
	SportRunning:    "Running",
	SportSwimming:   "Swimming",
	SportCycling:    "Cycling",
	SportFitness:    "Fitness",
	SportBasketball: "Basketball",
	SportFootball:   "Football",
	SportTennis:     "Tennis",
	SportBadminton:  "Badminton",
	SportYoga:       "Yoga",
	SportDancing:    "Dancing",
}

// ParseSport matches raw against the sport names, ignoring case and
// surrounding space.
func ParseSport(raw string) (Sport, bool) {
	s := Sport(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := sportLabels[s]
	return s, ok
}

func (s Sport) Label() string { return sportLabels[s] }

// SportLabels maps every sport name to its display label.
func SportLabels() map[string]string {
	out := make(map[string]string, len(sportLabels))
	for s, label := range sportLabels {
		out[string(s)] = label
	}
	return out
}

type Gender string

const (
	GenderMale         Gender = "MALE"
	GenderFemale       Gender = "FEMALE"
	GenderOther        Gender = "OTHER"
	GenderNotDisclosed Gender = "NOT_DISCLOSED"
)

var genderLabels = map[Gender]string{
	GenderMale:         "Male",
	GenderFemale:       "Female",
	GenderOther:        "Other",
	GenderNotDisclosed: "Prefer not to say",
}

func ParseGender(raw string) (Gender, bool) {
	g := Gender(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := genderLabels[g]
	return g, ok
}

func (g Gender) Label() string { return genderLabels[g] }

func GenderLabels() map[string]string {
	out := make(map[string]string, len(genderLabels))
	for g, label := range genderLabels {
		out[string(g)] = label
	}
	return out
}
