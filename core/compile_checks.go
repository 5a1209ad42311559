package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ FieldCatalog    = (*StaticCatalog)(nil)
	_ SessionStore    = (*MemorySessionStore)(nil)
	_ SessionLister   = (*MemorySessionStore)(nil)
	_ ImportService   = (*Service)(nil)
	_ RowProcessor    = RowProcessorFunc(nil)
	_ MetricsRecorder = NopMetricsRecorder{}
	_ error           = ValidationError{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
