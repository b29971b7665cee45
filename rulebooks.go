package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// serveRulebooks serves files from a single directory. os.Root keeps lookups
// from escaping it.
func serveRulebooks(cfg *Config, log *zap.SugaredLogger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		name := path.Clean(ps.ByName("file"))
		if cfg.rulebooks == "" || name == "." || name == "/" {
			http.NotFound(w, r)
			return
		}

		root, err := os.OpenRoot(cfg.rulebooks)
		if err != nil {
			log.Errorf("SERVE: Unable to open rulebook directory: %v", err)
			http.NotFound(w, r)
			return
		}
		defer root.Close()

		f, err := root.Open(name)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				log.Debugf("SERVE: Rulebook %q unavailable: %v", name, err)
			}
			http.NotFound(w, r)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}

		securityHeaders(cfg, w)
		w.Header().Set("Cache-Control", "public, max-age=3600")

		http.ServeContent(w, r, info.Name(), info.ModTime(), f)

		log.Infof("SERVE: Rulebook %s (%s) to %s in %s",
			name,
			humanReadableSize(info.Size()),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func humanReadableSize(bytes int64) string {
	const unit int64 = 1000
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := unit, 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(bytes)/float64(div),
		"kMGTPE"[exp])
}
