package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/molnotation/pkg/errors"
	mtypes "github.com/turtacn/molnotation/pkg/types/molecule"
)

// parserFeatures maps --disable values onto ParseOptions fields.
var parserFeatures = map[string]func(o *mtypes.ParseOptions) **bool{
	"inorganic":          func(o *mtypes.ParseOptions) **bool { return &o.Inorganic },
	"charges":            func(o *mtypes.ParseOptions) **bool { return &o.Charges },
	"branches":           func(o *mtypes.ParseOptions) **bool { return &o.Branches },
	"rings":              func(o *mtypes.ParseOptions) **bool { return &o.Rings },
	"aromaticity":        func(o *mtypes.ParseOptions) **bool { return &o.Aromaticity },
	"disconnection":      func(o *mtypes.ParseOptions) **bool { return &o.Disconnection },
	"reactions":          func(o *mtypes.ParseOptions) **bool { return &o.Reactions },
	"multiple-reactions": func(o *mtypes.ParseOptions) **bool { return &o.MultipleReactions },
	"cumulative-charge":  func(o *mtypes.ParseOptions) **bool { return &o.CumulativeCharge },
	"implicit-hydrogens": func(o *mtypes.ParseOptions) **bool { return &o.ImplicitHydrogens },
	"check-valence":      func(o *mtypes.ParseOptions) **bool { return &o.CheckValence },
}

func featureNames() []string {
	names := make([]string, 0, len(parserFeatures))
	for n := range parserFeatures {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// notationFlags are shared by every command that parses notation.
type notationFlags struct {
	markup       string
	showImplicit bool
	disable      []string
	enable       []string
}

func (f *notationFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.markup, "markup", "", "formula markup: plain, html or unicode (default from config)")
	fl.BoolVar(&f.showImplicit, "show-implicit", false, "include implicit hydrogens in output")
	fl.StringSliceVar(&f.disable, "disable", nil, "parser features to disable: "+strings.Join(featureNames(), ", "))
	fl.StringSliceVar(&f.enable, "enable", nil, "parser features to enable, overriding config")
}

// options converts --enable and --disable into request options. nil means
// the configured defaults apply unchanged.
func (f *notationFlags) options() (*mtypes.ParseOptions, error) {
	if len(f.disable) == 0 && len(f.enable) == 0 {
		return nil, nil
	}
	opts := &mtypes.ParseOptions{}
	set := func(names []string, v bool) error {
		for _, n := range names {
			field, ok := parserFeatures[strings.ToLower(strings.TrimSpace(n))]
			if !ok {
				return errors.InvalidParam(fmt.Sprintf("unknown parser feature %q (valid: %s)", n, strings.Join(featureNames(), ", ")))
			}
			val := v
			*field(opts) = &val
		}
		return nil
	}
	if err := set(f.enable, true); err != nil {
		return nil, err
	}
	if err := set(f.disable, false); err != nil {
		return nil, err
	}
	return opts, nil
}

func (f *notationFlags) analyzeRequest(notation string, groups bool) (*mtypes.AnalyzeRequest, error) {
	opts, err := f.options()
	if err != nil {
		return nil, err
	}
	return &mtypes.AnalyzeRequest{
		Notation:     notation,
		Options:      opts,
		Markup:       f.markup,
		ShowImplicit: f.showImplicit,
		Groups:       groups,
	}, nil
}
