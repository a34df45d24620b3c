package seed

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/adt-dev/adt/internal/apperr"
	"github.com/adt-dev/adt/internal/manifest"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Evaluator decides file and script inclusion. Conditions are HCL
// expressions over the resolved variables, e.g.
//
//	use_docker && !path_exists("Dockerfile")
//	version_at_least(python_version, "3.11")
//
// A condition that names an entry of the profile's [conditions] table is
// replaced by that entry's expression. Unknown variables evaluate to false,
// and a condition reading an attribute or index of one is false.
type Evaluator struct {
	vars  Variables
	named map[string]string
	funcs map[string]function.Function
}

// NewEvaluator builds an evaluator. fs and projectDir back path_exists;
// project backs manifest_get and may be nil.
func NewEvaluator(vars Variables, named map[string]string, fs afero.Fs, projectDir string, project *manifest.Project) *Evaluator {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Evaluator{
		vars:  vars,
		named: named,
		funcs: map[string]function.Function{
			"path_exists":      pathExistsFunc(fs, projectDir),
			"manifest_get":     manifestGetFunc(project),
			"version_at_least": versionAtLeastFunc,
			"lower":            stdlib.LowerFunc,
			"upper":            stdlib.UpperFunc,
			"contains":         stdlib.ContainsFunc,
			"length":           stdlib.LengthFunc,
			"coalesce":         stdlib.CoalesceFunc,
		},
	}
}

// CheckCondition reports syntax errors without evaluating.
func CheckCondition(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, diags := hclsyntax.ParseExpression([]byte(expr), "condition", hcl.InitialPos)
	if diags.HasErrors() {
		return apperr.Configf("invalid condition %q: %s", expr, diags.Error())
	}
	return nil
}

// Eval evaluates a condition. An empty condition is true.
func (e *Evaluator) Eval(cond string) (bool, error) {
	expr := strings.TrimSpace(cond)
	if expr == "" {
		return true, nil
	}
	if named, ok := e.named[expr]; ok {
		expr = named
	}

	parsed, diags := hclsyntax.ParseExpression([]byte(expr), "condition", hcl.InitialPos)
	if diags.HasErrors() {
		return false, apperr.Configf("invalid condition %q: %s", cond, diags.Error())
	}

	vars := map[string]cty.Value{}
	for _, tr := range parsed.Variables() {
		name := tr.RootName()
		if v, ok := e.vars[name]; ok {
			vars[name] = toCty(v)
			continue
		}
		// docker.enabled with docker unset: unknown propagates and the
		// result is false instead of an attribute error on a bool.
		if len(tr) > 1 {
			vars[name] = cty.DynamicVal
		} else if _, done := vars[name]; !done {
			vars[name] = cty.False
		}
	}

	val, diags := parsed.Value(&hcl.EvalContext{Variables: vars, Functions: e.funcs})
	if diags.HasErrors() {
		return false, apperr.Configf("evaluating condition %q: %s", cond, diags.Error())
	}
	if val.IsNull() || !val.IsKnown() {
		return false, nil
	}
	b, err := convert.Convert(val, cty.Bool)
	if err != nil {
		return false, apperr.Configf("condition %q must be boolean, got %s", cond, val.Type().FriendlyName())
	}
	return b.True(), nil
}

// toCty converts a decoded TOML or CLI value to a cty value.
func toCty(v any) cty.Value {
	switch val := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType)
	case bool:
		return cty.BoolVal(val)
	case int:
		return cty.NumberIntVal(int64(val))
	case int64:
		return cty.NumberIntVal(val)
	case float64:
		return cty.NumberFloatVal(val)
	case string:
		return cty.StringVal(val)
	case time.Time:
		return cty.StringVal(val.Format(time.RFC3339))
	case []string:
		if len(val) == 0 {
			return cty.EmptyTupleVal
		}
		elems := make([]cty.Value, len(val))
		for i, s := range val {
			elems[i] = cty.StringVal(s)
		}
		return cty.TupleVal(elems)
	case []any:
		if len(val) == 0 {
			return cty.EmptyTupleVal
		}
		elems := make([]cty.Value, len(val))
		for i, item := range val {
			elems[i] = toCty(item)
		}
		return cty.TupleVal(elems)
	case map[string]any:
		if len(val) == 0 {
			return cty.EmptyObjectVal
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		attrs := make(map[string]cty.Value, len(val))
		for _, k := range keys {
			attrs[k] = toCty(val[k])
		}
		return cty.ObjectVal(attrs)
	case map[string]string:
		m := make(map[string]any, len(val))
		for k, s := range val {
			m[k] = s
		}
		return toCty(m)
	default:
		return cty.StringVal(fmt.Sprint(val))
	}
}

func pathExistsFunc(fs afero.Fs, projectDir string) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "path", Type: cty.String}},
		Type:   function.StaticReturnType(cty.Bool),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			p := args[0].AsString()
			if !filepath.IsAbs(p) {
				p = filepath.Join(projectDir, p)
			}
			ok, err := afero.Exists(fs, p)
			return cty.BoolVal(err == nil && ok), nil
		},
	})
}

func manifestGetFunc(project *manifest.Project) function.Function {
	return function.New(&function.Spec{
		Params:   []function.Parameter{{Name: "key", Type: cty.String}},
		VarParam: &function.Parameter{Name: "default", Type: cty.DynamicPseudoType, AllowNull: true},
		Type:     function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			if project != nil {
				if v, ok := project.Get(args[0].AsString()); ok {
					return toCty(v), nil
				}
			}
			if len(args) > 1 {
				return args[1], nil
			}
			return cty.NullVal(cty.DynamicPseudoType), nil
		},
	})
}

var versionAtLeastFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "version", Type: cty.String},
		{Name: "minimum", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.Bool),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		v, err := semver.NewVersion(strings.TrimPrefix(args[0].AsString(), "v"))
		if err != nil {
			return cty.False, fmt.Errorf("parsing version %q: %w", args[0].AsString(), err)
		}
		minimum, err := semver.NewVersion(strings.TrimPrefix(args[1].AsString(), "v"))
		if err != nil {
			return cty.False, fmt.Errorf("parsing version %q: %w", args[1].AsString(), err)
		}
		return cty.BoolVal(!v.LessThan(minimum)), nil
	},
})
