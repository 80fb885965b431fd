// internal/wsrpc/router.go
package wsrpc

import (
	"fmt"
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Router dispatches calls to exported methods of the bound app object
// by reflection, so the desktop bindings and the server mode expose the
// same API surface.
type Router struct {
	app     interface{}
	methods map[string]reflect.Method
}

// NewRouter binds all exported methods of app
func NewRouter(app interface{}) *Router {
	r := &Router{
		app:     app,
		methods: make(map[string]reflect.Method),
	}

	appType := reflect.TypeOf(app)
	for i := 0; i < appType.NumMethod(); i++ {
		method := appType.Method(i)
		if method.IsExported() {
			r.methods[method.Name] = method
		}
	}
	return r
}

// Call invokes method with JSON-decoded params
func (r *Router) Call(method string, params []interface{}) (interface{}, error) {
	m, ok := r.methods[method]
	if !ok {
		return nil, fmt.Errorf("unknown method: %s", method)
	}

	numIn := m.Type.NumIn() - 1 // receiver excluded
	if len(params) != numIn {
		return nil, fmt.Errorf("%s takes %d params, got %d", method, numIn, len(params))
	}

	args := make([]reflect.Value, numIn+1)
	args[0] = reflect.ValueOf(r.app)
	for i, p := range params {
		v, err := coerce(p, m.Type.In(i+1))
		if err != nil {
			return nil, fmt.Errorf("%s param %d: %w", method, i, err)
		}
		args[i+1] = v
	}

	return collect(m.Func.Call(args))
}

// coerce adapts a JSON-decoded value to the parameter type. JSON
// numbers arrive as float64 and need narrowing to the integer kinds.
func coerce(p interface{}, want reflect.Type) (reflect.Value, error) {
	if p == nil {
		return reflect.Zero(want), nil
	}

	v := reflect.ValueOf(p)
	if v.Type().AssignableTo(want) {
		return v, nil
	}

	if v.Kind() == reflect.Float64 {
		f := p.(float64)
		switch want.Kind() {
		case reflect.Int:
			return reflect.ValueOf(int(f)), nil
		case reflect.Int32:
			return reflect.ValueOf(int32(f)), nil
		case reflect.Int64:
			return reflect.ValueOf(int64(f)), nil
		case reflect.Uint:
			return reflect.ValueOf(uint(f)), nil
		case reflect.Uint64:
			return reflect.ValueOf(uint64(f)), nil
		}
	}

	if v.Type().ConvertibleTo(want) {
		return v.Convert(want), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %T to %s", p, want)
}

// collect turns reflected return values into (result, error)
func collect(results []reflect.Value) (interface{}, error) {
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		if results[0].Type().Implements(errorType) {
			if !results[0].IsNil() {
				return nil, results[0].Interface().(error)
			}
			return nil, nil
		}
		return results[0].Interface(), nil
	case 2:
		if !results[1].IsNil() {
			return nil, results[1].Interface().(error)
		}
		return results[0].Interface(), nil
	default:
		last := results[len(results)-1]
		if last.Type().Implements(errorType) && !last.IsNil() {
			return nil, last.Interface().(error)
		}
		out := make([]interface{}, 0, len(results)-1)
		for i := 0; i < len(results)-1; i++ {
			out = append(out, results[i].Interface())
		}
		return out, nil
	}
}
