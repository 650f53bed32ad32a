package app

import (
	"codeberg.org/mutker/reqprof/internal/collector"
	"codeberg.org/mutker/reqprof/internal/config"
	"codeberg.org/mutker/reqprof/internal/errors"
	"codeberg.org/mutker/reqprof/internal/profiler"
	"codeberg.org/mutker/reqprof/internal/session"
	"github.com/mitchellh/mapstructure"
)

type logsOptions struct {
	ExceptLoggers []string `mapstructure:"except_loggers"`
}

// factory builds one collector for a scope. late collectors are resolved
// by the late boot and registered after the immediate ones.
type factory struct {
	late    bool
	options func() any
	create  func(s *Scope, opts any) profiler.Collector
}

var factories = map[string]factory{
	"logs": {
		options: func() any { return &logsOptions{ExceptLoggers: []string{"null"}} },
		create: func(s *Scope, opts any) profiler.Collector {
			recorder := collector.NewLogRecorder()
			s.Loggers = collector.NewLoggers(s.Loggers, recorder, opts.(*logsOptions).ExceptLoggers)
			return collector.NewLogs(recorder)
		},
	},
	"events": {
		create: func(s *Scope, _ any) profiler.Collector {
			recorder := collector.NewEventRecorder()
			s.dispatchers = collector.NewDispatcherFactory(recorder)
			return collector.NewEvents(recorder)
		},
	},
	"jobs": {
		create: func(s *Scope, _ any) profiler.Collector {
			recorder := collector.NewJobRecorder()
			s.Queues = collector.NewQueues(s.Queues, recorder)
			return collector.NewJobs(recorder)
		},
	},
	"storage_queries": {
		create: func(s *Scope, _ any) profiler.Collector {
			recorder := collector.NewQueryRecorder()
			s.Databases = collector.NewDatabases(s.Databases, recorder)
			return collector.NewStorageQueries(recorder)
		},
	},
	"middleware": {
		create: func(s *Scope, _ any) profiler.Collector {
			recorder := collector.NewMiddlewareRecorder()
			s.middlewares = collector.NewMiddlewareFactory(recorder)
			return collector.NewMiddleware(recorder, s.services.Middleware)
		},
	},
	"request_response": {
		create: func(*Scope, any) profiler.Collector {
			return collector.NewRequestResponse()
		},
	},
	"view": {
		late:    true,
		options: func() any { return &collector.ViewOptions{CollectViews: true, CollectAssets: true} },
		create: func(s *Scope, opts any) profiler.Collector {
			o := *opts.(*collector.ViewOptions)
			recorder := collector.NewViewRecorder()
			if o.CollectViews {
				s.Renderer = collector.NewRenderer(s.Renderer, recorder)
			}
			return collector.NewView(recorder, s.services.Assets, o)
		},
	},
	"session": {
		late:    true,
		options: func() any { return &collector.SessionOptions{} },
		create: func(s *Scope, opts any) profiler.Collector {
			return collector.NewSession(func() *session.Session { return s.Session }, *opts.(*collector.SessionOptions))
		},
	},
	"routes": {
		late: true,
		create: func(s *Scope, _ any) profiler.Collector {
			return collector.NewRoutes(s.services.Router)
		},
	},
	"boots": {
		late: true,
		create: func(s *Scope, _ any) profiler.Collector {
			return collector.NewBoots(s.services.Booter)
		},
	},
	"translation": {
		late: true,
		create: func(s *Scope, _ any) profiler.Collector {
			recorder := collector.NewMissingRecorder(s.services.Missing)
			s.Translator = s.Translator.WithHandler(recorder)
			return collector.NewTranslation(recorder)
		},
	},
}

// resolved is a configured collector ready to be built per scope.
type resolved struct {
	name    string
	factory factory
	options any
}

// resolveCollectors validates specs and decodes their options. It keeps
// the specs matching late.
func resolveCollectors(specs []config.CollectorSpec, late bool) ([]resolved, error) {
	errFactory := errors.New()

	out := make([]resolved, 0, len(specs))
	for _, spec := range specs {
		f, ok := factories[spec.Name]
		if !ok {
			return nil, errFactory.WithData(ErrUnknownCollector, struct {
				Name string
			}{
				Name: spec.Name,
			})
		}
		if f.late != late {
			continue
		}

		var opts any
		if f.options != nil {
			opts = f.options()
			if err := decodeOptions(spec.Options, opts); err != nil {
				return nil, errFactory.WithData(ErrInvalidCollectorOptions, struct {
					Name  string
					Error string
				}{
					Name:  spec.Name,
					Error: err.Error(),
				})
			}
		}

		out = append(out, resolved{name: spec.Name, factory: f, options: opts})
	}
	return out, nil
}

func decodeOptions(input map[string]any, output any) error {
	if len(input) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
