package handlers

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/camden-git/imagestudio/media"
)

// AssetServer serves objects of a LocalStorage under routePrefix, e.g.
//
//	r.Get("/media/*", AssetServer(store, "/media/"))
func AssetServer(store *media.LocalStorage, routePrefix string) http.HandlerFunc {
	logrus.Infof("Serving assets for '%s*' from directory: %s", routePrefix, store.BasePath())

	return func(w http.ResponseWriter, r *http.Request) {
		relativePath := strings.TrimPrefix(r.URL.Path, routePrefix)
		if relativePath == "" || strings.Contains(relativePath, "..") {
			WriteAPIError(w, http.StatusBadRequest, CodeBadRequest, "Invalid asset path")
			return
		}

		fullPath, err := store.GetFullPath(relativePath)
		if err != nil {
			WriteAPIError(w, http.StatusForbidden, CodeForbidden, "Forbidden")
			logrus.Warnf("SECURITY: Attempted asset access outside storage: Request='%s'", r.URL.Path)
			return
		}

		if info, err := os.Stat(fullPath); os.IsNotExist(err) || (err == nil && info.IsDir()) {
			WriteAPIError(w, http.StatusNotFound, CodeNotFound, "Asset not found")
			return
		} else if err != nil {
			WriteAPIError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
			logrus.Errorf("Error stating asset file %s: %v", fullPath, err)
			return
		}

		// keys are unique per upload, so assets never change
		cacheDuration := 24 * time.Hour
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(cacheDuration.Seconds())))
		w.Header().Set("Expires", time.Now().Add(cacheDuration).Format(http.TimeFormat))

		http.ServeFile(w, r, fullPath)
	}
}
