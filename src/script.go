package main

import (
	"fmt"
	"math"
	"reflect"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"
	"golang.org/x/exp/slog"
)

// Data handlers
func luaRegister(l *lua.LState, name string, f func(*lua.LState) int) {
	l.Register(name, f)
}
func strArg(l *lua.LState, argi int) string {
	if !lua.LVCanConvToString(l.Get(argi)) {
		l.RaiseError("\nArgument %v is not a string: %v\n", argi, l.Get(argi))
	}
	return l.ToString(argi)
}
func numArg(l *lua.LState, argi int) float64 {
	num, ok := l.Get(argi).(lua.LNumber)
	if !ok {
		l.RaiseError("\nArgument %v is not a number: %v\n", argi, l.Get(argi))
	}
	return float64(num)
}

func roundFloat(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// toLValue converts exported struct fields, slices and scalars to Lua
// values. Keys come from the lua tag, falling back to the field name.
func toLValue(l *lua.LState, v interface{}) lua.LValue {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return lua.LNil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		table := l.NewTable()
		for i := 0; i < rv.NumField(); i++ {
			field := rv.Type().Field(i)
			if field.PkgPath != "" {
				continue
			}
			key := field.Tag.Get("lua")
			if key == "" {
				key = field.Name
			}
			table.RawSetString(key, toLValue(l, rv.Field(i).Interface()))
		}
		return table
	case reflect.Array, reflect.Slice:
		table := l.NewTable()
		for i := 0; i < rv.Len(); i++ {
			table.Append(toLValue(l, rv.Index(i).Interface()))
		}
		return table
	case reflect.String:
		return lua.LString(rv.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lua.LNumber(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(roundFloat(rv.Float(), 6))
	case reflect.Bool:
		return lua.LBool(rv.Bool())
	}
	return lua.LString(fmt.Sprintf("%v", rv.Interface()))
}

// ShipState is the view of the ship handed to scripts.
type ShipState struct {
	X        float32 `lua:"x"`
	Y        float32 `lua:"y"`
	Rotation float32 `lua:"rot"`
	Speed    float32 `lua:"speed"`
	Alive    bool    `lua:"alive"`
}

// scriptInput drives the ship from a Lua script. The script defines
// update(frame, dt) returning a table with any of rotate, thrust, fire,
// restart and select = {x = ..., y = ...}.
type scriptInput struct {
	l   *lua.LState
	gs  *GameState
	log *slog.Logger
}

func newScriptInput(file string, gs *GameState, log *slog.Logger) (*scriptInput, error) {
	return loadScriptInput(file, gs, log, func(l *lua.LState) error { return l.DoFile(file) })
}

func newScriptInputString(src string, gs *GameState, log *slog.Logger) (*scriptInput, error) {
	return loadScriptInput("<string>", gs, log, func(l *lua.LState) error { return l.DoString(src) })
}

func loadScriptInput(name string, gs *GameState, log *slog.Logger, load func(*lua.LState) error) (*scriptInput, error) {
	l := lua.NewState()
	s := &scriptInput{l: l, gs: gs, log: log}
	s.registerFunctions()
	if err := load(l); err != nil {
		l.Close()
		return nil, errors.Wrapf(err, "failed to load script %q", name)
	}
	if l.GetGlobal("update").Type() != lua.LTFunction {
		l.Close()
		return nil, errors.Errorf("script %q does not define update", name)
	}
	return s, nil
}

func (s *scriptInput) registerFunctions() {
	luaRegister(s.l, "worldSize", func(l *lua.LState) int {
		l.Push(lua.LNumber(s.gs.world.Size[0]))
		l.Push(lua.LNumber(s.gs.world.Size[1]))
		return 2
	})
	luaRegister(s.l, "shipState", func(l *lua.LState) int {
		ship := s.gs.ship()
		l.Push(toLValue(l, ShipState{
			X:        ship.P[0],
			Y:        ship.P[1],
			Rotation: ship.Rot,
			Speed:    ship.DP.Len(),
			Alive:    ship.Alive,
		}))
		return 1
	})
	luaRegister(s.l, "asteroidCount", func(l *lua.LState) int {
		l.Push(lua.LNumber(s.gs.world.asteroids.Len()))
		return 1
	})
	luaRegister(s.l, "log", func(l *lua.LState) int {
		s.log.Info(strArg(l, 1), "source", "script")
		return 0
	})
	luaRegister(s.l, "clamp", func(l *lua.LState) int {
		l.Push(lua.LNumber(math.Max(numArg(l, 2), math.Min(numArg(l, 1), numArg(l, 3)))))
		return 1
	})
}

func (s *scriptInput) Next(frame int, dt float32) (Inputs, error) {
	err := s.l.CallByParam(lua.P{
		Fn:      s.l.GetGlobal("update"),
		NRet:    1,
		Protect: true,
	}, lua.LNumber(frame), lua.LNumber(dt))
	if err != nil {
		return Inputs{}, errors.Wrapf(err, "script update at frame %d", frame)
	}
	ret := s.l.Get(-1)
	s.l.Pop(1)

	in := Inputs{Dt: dt}
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		if ret != lua.LNil {
			return Inputs{}, errors.Errorf("script update returned %s, want table", ret.Type())
		}
		return in, nil
	}
	if n, ok := tbl.RawGetString("rotate").(lua.LNumber); ok {
		in.Rotate = float32(math.Max(-1, math.Min(float64(n), 1)))
	}
	in.Thrust = lua.LVAsBool(tbl.RawGetString("thrust"))
	in.Fire = lua.LVAsBool(tbl.RawGetString("fire"))
	in.Restart = lua.LVAsBool(tbl.RawGetString("restart"))
	if sel, ok := tbl.RawGetString("select").(*lua.LTable); ok {
		x, xok := sel.RawGetString("x").(lua.LNumber)
		y, yok := sel.RawGetString("y").(lua.LNumber)
		if !xok || !yok {
			return Inputs{}, errors.Errorf("script update at frame %d: select needs numeric x and y", frame)
		}
		in.Select = true
		in.Cursor = mgl32.Vec2{float32(x), float32(y)}
	}
	return in, nil
}

func (s *scriptInput) Close() error {
	s.l.Close()
	return nil
}
