// Package server holds the long-running process plumbing around the
// dispatcher: the ServerContext shared by tool handlers, health probes, the
// export download handler and the dedicated metrics server.
//
// All dependencies are injected with functional options:
//
//	sc, err := server.NewServerContext(ctx,
//		server.WithDispatcher(d),
//		server.WithLogger(logger),
//		server.WithInstrumentationProvider(provider),
//		server.WithVersion(version),
//	)
//	if err != nil {
//		return err
//	}
//	defer sc.Shutdown(ctx)
//
//	mux := http.NewServeMux()
//	server.NewHealthChecker(sc).RegisterHealthEndpoints(mux)
//	mux.Handle(server.ExportsPattern, server.NewExportHandler(sc))
package server
