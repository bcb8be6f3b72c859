package utils

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	. "waiverdesk/internal/models"
)

var (
	generatorFirstNames = []string{
		"John", "Jane", "Bob", "Alice", "Charlie", "Diana", "Frank", "Grace", "Henry", "Ivy",
		"Jonathan", "Joanna", "Maria", "Mario", "Sean", "Shawn", "Katherine", "Catherine",
	}
	generatorLastNames = []string{
		"Smith", "Smyth", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
		"Davis", "Rodriguez", "Martinez", "Thompson", "Thomson", "O'Brien",
	}
	generatorChildNames = []string{"Timmy", "Tara", "Sam", "Lily", "Max", "Zoe", "Leo", "Mia"}
	generatorDomains    = []string{"gmail.com", "yahoo.com", "hotmail.com", "outlook.com", "example.com"}
)

type GeneratedWaiver struct {
	Request  SubmitWaiverRequest
	SignedAt time.Time
}

// WaiverGenerator produces plausible waiver submissions for seeding and
// benchmarking the search. The same seed always yields the same waivers.
type WaiverGenerator struct {
	rng   *rand.Rand
	now   time.Time
	years int
}

func NewWaiverGenerator(seed int64, now time.Time, years int) *WaiverGenerator {
	if years <= 0 {
		years = 1
	}
	return &WaiverGenerator{
		rng:   rand.New(rand.NewSource(seed)),
		now:   now.UTC(),
		years: years,
	}
}

func (g *WaiverGenerator) Generate(count int) []GeneratedWaiver {
	waivers := make([]GeneratedWaiver, 0, count)
	for range count {
		waivers = append(waivers, g.next())
	}
	return waivers
}

func (g *WaiverGenerator) next() GeneratedWaiver {
	first := pick(g.rng, generatorFirstNames)
	last := pick(g.rng, generatorLastNames)
	initials := strings.ToUpper(first[:1] + last[:1])

	request := SubmitWaiverRequest{
		FirstName:             first,
		LastName:              last,
		Email:                 fmt.Sprintf("%s.%s%d@%s", strings.ToLower(first), strings.ToLower(strings.ReplaceAll(last, "'", "")), g.rng.Intn(1000), pick(g.rng, generatorDomains)),
		YearOfBirth:           fmt.Sprint(g.now.Year() - 18 - g.rng.Intn(50)),
		EmergencyContactPhone: fmt.Sprintf("555-%04d", g.rng.Intn(10000)),
		SafetyRulesInitial:    initials,
		MedicalConsentInitial: initials,
		PhotoRelease:          g.rng.Float32() < 0.5,
		Signature:             "data:image/png;base64,iVBORw0KGgo=",
	}
	if g.rng.Float32() < 0.3 {
		request.Phone = fmt.Sprintf("555-%04d", g.rng.Intn(10000))
	}
	if g.rng.Float32() < 0.25 {
		minors := make([]string, 1+g.rng.Intn(2))
		for i := range minors {
			minors[i] = pick(g.rng, generatorChildNames) + " " + last
		}
		request.MinorNames = strings.Join(minors, ", ")
	}

	signedAt := g.now.Add(-time.Duration(g.rng.Int63n(int64(g.years) * 365 * 24 * int64(time.Hour))))

	return GeneratedWaiver{Request: request, SignedAt: signedAt}
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}
