// Package topic classifies clip text into a fixed set of economic topic
// categories using deterministic keyword matching.
package topic

import (
	"regexp"
	"strings"
)

// Topic is a fixed-category label attached to a rendered clip.
type Topic string

const (
	Inflation     Topic = "inflation"
	Fed           Topic = "fed"
	Markets       Topic = "markets"
	GDP           Topic = "gdp"
	Employment    Topic = "employment"
	Banking       Topic = "banking"
	Crypto        Topic = "crypto"
	Housing       Topic = "housing"
	International Topic = "international"
	General       Topic = "general"
)

// priority breaks exact match-count ties; earlier wins.
var priority = []Topic{
	Fed, Inflation, Markets, GDP, Employment,
	Banking, Crypto, Housing, International,
}

// keywords maps each topic to the terms counted during classification.
// The table is built once at init and never mutated, so concurrent reads
// are safe without synchronisation.
var keywords = map[Topic][]string{
	Inflation: {
		"inflation", "cpi", "ppi", "price level", "deflation",
		"cost of living", "price index", "disinflation",
	},
	Fed: {
		"fed", "federal reserve", "fomc", "powell", "interest rate",
		"interest rates", "rate hike", "rate cut", "monetary policy",
		"basis points",
	},
	Markets: {
		"stock", "stocks", "market", "markets", "s&p", "nasdaq", "dow",
		"equities", "bonds", "yield", "trading", "rally", "selloff",
	},
	GDP: {
		"gdp", "economic growth", "recession", "output", "productivity",
		"gross domestic product",
	},
	Employment: {
		"jobs", "unemployment", "payroll", "payrolls", "labor market",
		"hiring", "layoffs", "jobless", "wages",
	},
	Banking: {
		"bank", "banks", "banking", "credit", "lending", "deposits",
		"loan", "loans", "financial institution",
	},
	Crypto: {
		"crypto", "bitcoin", "ethereum", "blockchain", "stablecoin",
		"digital asset", "digital assets",
	},
	Housing: {
		"housing", "real estate", "mortgage", "mortgages", "home prices",
		"rent", "rents", "homebuyers",
	},
	International: {
		"china", "europe", "tariff", "tariffs", "trade deficit",
		"exchange rate", "global economy", "imports", "exports",
	},
}

// patterns holds one whole-word regexp per keyword, compiled at init.
var patterns map[Topic][]*regexp.Regexp

func init() {
	patterns = make(map[Topic][]*regexp.Regexp, len(keywords))
	for t, kws := range keywords {
		ps := make([]*regexp.Regexp, len(kws))
		for i, kw := range kws {
			ps[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
		}
		patterns[t] = ps
	}
}

// Classify maps text to a Topic by counting whole-word keyword occurrences,
// case-insensitively. The topic with the highest count wins; exact ties
// resolve by the fixed priority order. No match returns General. The
// function is pure and total.
func Classify(text string) Topic {
	lower := strings.ToLower(text)

	counts := make(map[Topic]int, len(patterns))
	for t, ps := range patterns {
		n := 0
		for _, p := range ps {
			n += len(p.FindAllStringIndex(lower, -1))
		}
		counts[t] = n
	}

	best := General
	bestCount := 0
	for _, t := range priority {
		if counts[t] > bestCount {
			best = t
			bestCount = counts[t]
		}
	}
	return best
}

// All returns every topic in priority order, General last.
func All() []Topic {
	out := make([]Topic, 0, len(priority)+1)
	out = append(out, priority...)
	return append(out, General)
}

// Valid reports whether s names a known topic.
func Valid(s string) bool {
	for _, t := range All() {
		if Topic(s) == t {
			return true
		}
	}
	return false
}
