package config

// ConfigCallback collects functions to be invoked once the configuration has
// been built, so that packages can configure themselves without importing main.
type ConfigCallback[T any] struct {
	callbacks []func(T)
}

func (c *ConfigCallback[T]) AddCallback(f func(T)) {
	c.callbacks = append(c.callbacks, f)
}

func (c *ConfigCallback[T]) Call(cfg T) {
	for _, f := range c.callbacks {
		f(cfg)
	}
}
