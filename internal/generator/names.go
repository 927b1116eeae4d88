package generator

import (
	"fmt"
	"math/rand"
	"strings"
	"unicode"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/Skotchmaster/shopdata/internal/models"
)

// NameSource produces the human-facing values of generated records.
type NameSource interface {
	Name() string
	// Email derives an address from name.
	Email(name string) string
	Country() string
	Text(minWords, maxWords int) string
	ProductName(category models.Category) string
}

// NewNameSource picks the implementation once. The fixed vocabulary draws
// from rng; the faker keeps its own stream derived from seed.
func NewNameSource(useFaker bool, seed int64, rng *rand.Rand) NameSource {
	if useFaker {
		// odd, so never the zero seed gofakeit treats as "random"
		return &fakerSource{f: gofakeit.New(seed*2 + 1)}
	}
	return &vocabSource{rng: rng}
}

type fakerSource struct {
	f *gofakeit.Faker
}

func (s *fakerSource) Name() string    { return s.f.Name() }
func (s *fakerSource) Country() string { return s.f.Country() }

func (s *fakerSource) Email(name string) string {
	return emailFromName(name, s.f.DomainName())
}

func (s *fakerSource) Text(minWords, maxWords int) string {
	return s.f.Sentence(s.f.Number(minWords, maxWords))
}

func (s *fakerSource) ProductName(models.Category) string {
	return s.f.ProductName()
}

var (
	firstNames   = []string{"John", "Jane", "Michael", "Sarah", "David", "Emily", "James", "Emma"}
	lastNames    = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis"}
	countries    = []string{"USA", "UK", "Canada", "Australia", "Germany", "France", "Japan", "India"}
	emailDomains = []string{"gmail.com", "yahoo.com", "outlook.com", "hotmail.com"}
	reviewWords  = []string{"great", "good", "excellent", "amazing", "love", "nice", "quality", "fast", "recommend"}

	productPrefixes = map[models.Category][]string{
		models.CategoryElectronics: {"Smart", "Digital", "Wireless", "Pro"},
		models.CategoryHome:        {"Premium", "Classic", "Modern", "Elegant"},
		models.CategoryBeauty:      {"Luxury", "Natural", "Organic", "Professional"},
		models.CategoryBooks:       {"The", "Complete Guide to", "Advanced", "Introduction to"},
		models.CategoryClothing:    {"Designer", "Classic", "Sport", "Casual"},
		models.CategorySports:      {"Professional", "Elite", "Training", "Competition"},
		models.CategoryToys:        {"Fun", "Educational", "Interactive", "Creative"},
		models.CategoryAutomotive:  {"Heavy Duty", "Premium", "Performance", "Classic"},
	}
)

type vocabSource struct {
	rng *rand.Rand
}

func (s *vocabSource) pick(from []string) string {
	return from[s.rng.Intn(len(from))]
}

func (s *vocabSource) Name() string {
	return s.pick(firstNames) + " " + s.pick(lastNames)
}

func (s *vocabSource) Email(name string) string {
	return emailFromName(name, s.pick(emailDomains))
}

func (s *vocabSource) Country() string {
	return s.pick(countries)
}

func (s *vocabSource) Text(minWords, maxWords int) string {
	n := minWords + s.rng.Intn(maxWords-minWords+1)
	words := make([]string, n)
	for i := range words {
		words[i] = s.pick(reviewWords)
	}
	return capitalize(strings.Join(words, " ")) + "."
}

func (s *vocabSource) ProductName(category models.Category) string {
	prefixes, ok := productPrefixes[category]
	if !ok {
		prefixes = []string{"Premium"}
	}
	return fmt.Sprintf("%s %s Item %d", s.pick(prefixes), capitalize(string(category)), 1+s.rng.Intn(1000))
}

// emailFromName lowercases name, joins its words with dots and drops
// anything that is not a letter, digit or dot.
func emailFromName(name, domain string) string {
	local := strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '.'
		case r == '.' || r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			return unicode.ToLower(r)
		default:
			return -1
		}
	}, strings.TrimSpace(name))
	local = strings.Trim(local, ".")
	for strings.Contains(local, "..") {
		local = strings.ReplaceAll(local, "..", ".")
	}
	if local == "" {
		local = "customer"
	}
	return local + "@" + domain
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
