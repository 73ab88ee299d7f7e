/*
Package streaming protects raw file downloads from slow or vanished clients.

The HTTP server runs without a global write timeout so that large files can
be downloaded over slow links. Instead every write made through a Writer
gets its own deadline via http.ResponseController, so a client that stops
reading is dropped after Config.WriteTimeout of inactivity rather than
holding the connection forever. Config.MaxDuration optionally caps the total
time spent on one response.

ServeContent wraps http.ServeContent, keeping its Range and conditional
request handling:

	n, err := streaming.ServeContent(w, r, name, info.ModTime(), f, streaming.DefaultConfig())
	if err != nil && !errors.Is(err, streaming.ErrClientGone) {
		logging.Warn("Download of %s stopped after %d bytes: %v", name, n, err)
	}

Writers that do not support deadlines, such as httptest.ResponseRecorder,
are written to without one.
*/
package streaming
