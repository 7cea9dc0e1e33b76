package propwatch

// Default 是包级函数使用的 Interceptor
var Default = mustInterceptor(Config{})

func mustInterceptor(cfg Config) *Interceptor {
	in, err := NewInterceptor(cfg)
	if err != nil {
		panic(err)
	}
	return in
}

// Watch 在 Default 上注册观察者，见 Interceptor.Watch
func Watch(target *Object, name string, spec Spec, scope any) (*Watcher, error) {
	return Default.Watch(target, name, spec, scope)
}

// Unwatch 见 Interceptor.Unwatch
func Unwatch(target *Object, name string, watcher *Watcher) bool {
	return Default.Unwatch(target, name, watcher)
}

// Watchers 见 Interceptor.Watchers
func Watchers(target *Object, name string) []*Watcher {
	return Default.Watchers(target, name)
}

// Mutators 见 Interceptor.Mutators
func Mutators(target *Object, name string) []Func {
	return Default.Mutators(target, name)
}
