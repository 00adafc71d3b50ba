package pricing

import (
	"fmt"
	"strings"

	"github.com/sugarline/bakehouse/pkg/errorbank"
)

// Size enumerates supported cake sizes, smallest to largest.
type Size string

const (
	Size6Inch        Size = "6_inch"
	Size8Inch        Size = "8_inch"
	Size10Inch       Size = "10_inch"
	SizeQuarterSheet Size = "quarter_sheet"
	SizeHalfSheet    Size = "half_sheet"
	SizeFullSheet    Size = "full_sheet"
)

// Flavor enumerates supported cake flavors.
type Flavor string

const (
	FlavorVanilla   Flavor = "vanilla"
	FlavorChocolate Flavor = "chocolate"
	FlavorRedVelvet Flavor = "red_velvet"
	FlavorLemon     Flavor = "lemon"
	FlavorCarrot    Flavor = "carrot"
	FlavorMarble    Flavor = "marble"
)

// Icing enumerates supported icing styles.
type Icing string

const (
	IcingButtercream Icing = "buttercream"
	IcingFondant     Icing = "fondant"
	IcingCreamCheese Icing = "cream_cheese"
	IcingWhipped     Icing = "whipped"
	IcingGanache     Icing = "ganache"
)

const (
	// MaxTiers bounds the tier count of a single cake.
	MaxTiers = 4
	// MaxFillings bounds the filling selection.
	MaxFillings = 3
	// MaxColors bounds the color selection.
	MaxColors = 4
)

// Selection is the closed customization variant a caller submits. Unknown
// keys are rejected at validation time rather than silently defaulted.
type Selection struct {
	Size        Size
	Tiers       int
	Flavor      Flavor
	Icing       Icing
	Fillings    []string
	Colors      []string
	Decorations []string
	Notes       string
}

// Validate checks every field against the closed option tables. Optional
// slices may be empty; size, flavor, and icing are required.
func (s Selection) Validate() error {
	if _, ok := sizeUpcharges[s.Size]; !ok {
		return errorbank.BadRequest(fmt.Sprintf("unknown cake size %q", s.Size))
	}
	if !validFlavor(s.Flavor) {
		return errorbank.BadRequest(fmt.Sprintf("unknown flavor %q", s.Flavor))
	}
	if !validIcing(s.Icing) {
		return errorbank.BadRequest(fmt.Sprintf("unknown icing %q", s.Icing))
	}
	if s.Tiers < 1 || s.Tiers > MaxTiers {
		return errorbank.BadRequest(fmt.Sprintf("tier count must be between 1 and %d", MaxTiers))
	}
	if len(s.Fillings) > MaxFillings {
		return errorbank.BadRequest(fmt.Sprintf("at most %d fillings allowed", MaxFillings))
	}
	for _, f := range s.Fillings {
		if _, ok := fillingOptions[f]; !ok {
			return errorbank.BadRequest(fmt.Sprintf("unknown filling %q", f))
		}
	}
	if len(s.Colors) > MaxColors {
		return errorbank.BadRequest(fmt.Sprintf("at most %d colors allowed", MaxColors))
	}
	for _, c := range s.Colors {
		if strings.TrimSpace(c) == "" {
			return errorbank.BadRequest("color names must not be blank")
		}
	}
	for _, d := range s.Decorations {
		if _, ok := decorationFees[d]; !ok {
			return errorbank.BadRequest(fmt.Sprintf("unknown decoration %q", d))
		}
	}
	return nil
}

func validFlavor(f Flavor) bool {
	switch f {
	case FlavorVanilla, FlavorChocolate, FlavorRedVelvet, FlavorLemon, FlavorCarrot, FlavorMarble:
		return true
	}
	return false
}

func validIcing(i Icing) bool {
	switch i {
	case IcingButtercream, IcingFondant, IcingCreamCheese, IcingWhipped, IcingGanache:
		return true
	}
	return false
}
