package progress

// noopReporter discards every event; used when the caller has no terminal
// to report to at all (e.g. tests, library embedding).
type noopReporter struct{}

// Noop returns a Reporter that does nothing.
func Noop() Reporter { return noopReporter{} }

func (noopReporter) Phase(string)          {}
func (noopReporter) Chunk(int, int)        {}
func (noopReporter) Instance(int, int)     {}
func (noopReporter) Done()                 {}
func (noopReporter) Fail(error)            {}
func (noopReporter) Close()                {}
