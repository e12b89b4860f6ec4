// Package factory instantiates pluggable modules (station feeds, graph
// providers, plan writers, metric sinks) from configuration. A module is a
// type string plus a map of raw settings; each implementation registers a
// constructor that decodes the settings into its own typed config.
//
//	reg := factory.NewRegistry[output.Writer]()
//	_ = reg.Register("file", func(conf map[string]any) (output.Writer, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newFileWriter(c.Path), nil
//	})
//	w, err := reg.Create(factory.ModuleConfig{Type: "file", Conf: map[string]any{"path": "plan.json"}})
package factory
