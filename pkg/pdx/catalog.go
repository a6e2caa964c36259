package pdx

import (
	"reflect"
	"sync"
)

var (
	catalogMu sync.RWMutex
	catalog   = make(map[string]reflect.Type)
)

// RegisterDomainType maps a logical class name to a concrete Go struct
// type. Applications register their domain types at init() time, the same
// way datasource adapters register themselves. The prototype's value is
// ignored; only its type is recorded.
func RegisterDomainType(className string, prototype any) {
	catalogMu.Lock()
	defer catalogMu.Unlock()

	t := reflect.TypeOf(prototype)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	catalog[className] = t
}

// NewDomainInstance instantiates the registered type for a class name.
// The second return is false when no type is registered under that name.
func NewDomainInstance(className string) (any, bool) {
	catalogMu.RLock()
	t, ok := catalog[className]
	catalogMu.RUnlock()
	if !ok {
		return nil, false
	}
	return reflect.New(t).Interface(), true
}

// UnregisterDomainType removes a catalog entry. Test cleanup only.
func UnregisterDomainType(className string) {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	delete(catalog, className)
}
