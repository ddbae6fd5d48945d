package challenge

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/Shopify/go-lua"
)

const scoreTable = "__score_functions"

// ScoreFunc is one Lua score function of a mission. Deps name the objectives
// passed as arguments; Lua is the function body.
type ScoreFunc struct {
	Deps []string `yaml:"deps" json:"deps"`
	Lua  string   `yaml:"lua" json:"lua"`

	slot   int
	engine *engine
}

// Dependencies implements scoring.Function.
func (f *ScoreFunc) Dependencies() []string {
	return Dependencies(f)
}

// Evaluate calls the function with args bound to Deps. A Lua error(), a
// missing result or a non-numeric result is returned as an error.
func (f *ScoreFunc) Evaluate(args []any) (float64, error) {
	if f.engine == nil {
		return 0, errors.New("score function not compiled")
	}
	if len(args) != len(f.Deps) {
		return 0, fmt.Errorf("score function takes %d arguments, got %d", len(f.Deps), len(args))
	}
	return f.engine.call(f.slot, args)
}

// engine owns the Lua state shared by every score function of a definition.
// go-lua states are single threaded, so calls are serialized.
type engine struct {
	mu    sync.Mutex
	state *lua.State
}

func newEngine(missions []*Mission) (*engine, error) {
	l := lua.NewState()
	lua.OpenLibraries(l)
	for _, name := range []string{"os", "io", "package", "require", "dofile", "loadfile", "load"} {
		l.PushNil()
		l.SetGlobal(name)
	}
	l.NewTable()
	l.SetGlobal(scoreTable)

	e := &engine{state: l}
	slot := 0
	for _, m := range missions {
		for i, f := range m.Score {
			slot++
			if err := e.compile(slot, f); err != nil {
				return nil, fmt.Errorf("mission %s score %d: %w", m.ID, i+1, err)
			}
			f.slot = slot
			f.engine = e
		}
	}
	return e, nil
}

func (e *engine) compile(slot int, f *ScoreFunc) error {
	if strings.TrimSpace(f.Lua) == "" {
		return errors.New("empty lua body")
	}
	l := e.state
	top := l.Top()
	defer l.SetTop(top)

	src := "return function(" + strings.Join(f.Deps, ", ") + ")\n" + f.Lua + "\nend"
	l.Global(scoreTable)
	if err := lua.LoadString(l, src); err != nil {
		return fmt.Errorf("compile lua: %w", err)
	}
	if err := l.ProtectedCall(0, 1, 0); err != nil {
		return fmt.Errorf("build lua function: %w", err)
	}
	l.RawSetInt(-2, slot)
	return nil
}

func (e *engine) call(slot int, args []any) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	l := e.state
	if l == nil {
		return 0, errors.New("challenge closed")
	}
	top := l.Top()
	defer l.SetTop(top)

	l.Global(scoreTable)
	l.RawGetInt(-1, slot)
	for _, a := range args {
		if err := push(l, a); err != nil {
			return 0, err
		}
	}
	if err := l.ProtectedCall(len(args), 1, 0); err != nil {
		return 0, errors.New(cleanLuaError(err.Error()))
	}
	switch l.TypeOf(-1) {
	case lua.TypeNumber:
		n, _ := l.ToNumber(-1)
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("score is not a finite number")
		}
		return n, nil
	case lua.TypeNil:
		return 0, errors.New("score function returned nothing")
	default:
		return 0, fmt.Errorf("score function returned a %s", typeName(l.TypeOf(-1)))
	}
}

func typeName(t lua.Type) string {
	switch t {
	case lua.TypeBoolean:
		return "boolean"
	case lua.TypeString:
		return "string"
	case lua.TypeTable:
		return "table"
	case lua.TypeFunction:
		return "function"
	default:
		return "non-number value"
	}
}

func push(l *lua.State, v any) error {
	switch x := v.(type) {
	case nil:
		l.PushNil()
	case float64:
		l.PushNumber(x)
	case bool:
		l.PushBoolean(x)
	case string:
		l.PushString(x)
	default:
		return fmt.Errorf("cannot pass %T to lua", v)
	}
	return nil
}

// cleanLuaError strips the chunk location prefix from error("...") messages.
func cleanLuaError(msg string) string {
	if i := strings.Index(msg, "]:"); i >= 0 {
		rest := msg[i+2:]
		if j := strings.Index(rest, ": "); j >= 0 {
			return rest[j+2:]
		}
	}
	return msg
}

func (e *engine) close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = nil
}
