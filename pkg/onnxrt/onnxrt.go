// Package onnxrt centralizes the one-time ONNX Runtime environment
// initialization shared by the local recognizer and the punctuator, and
// the shared-library path resolution both depend on.
package onnxrt

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	once    sync.Once
	initErr error
)

// Init initializes the ONNX Runtime environment exactly once per process.
// libPathOverride, when non-empty, takes precedence over every other
// resolution strategy.
func Init(libPathOverride string, devMode bool) error {
	once.Do(func() {
		path, err := resolveLibPath(libPathOverride, devMode)
		if err != nil {
			initErr = err
			return
		}
		ort.SetSharedLibraryPath(path)
		initErr = ort.InitializeEnvironment()
	})
	return initErr
}

// resolveLibPath searches, in order: an explicit override, a path next to
// the executable (lib/<os>-<arch>/<filename> and ../lib/<os>-<arch>/...),
// and finally — only when devMode is set — the same two paths relative to
// the current working directory. CWD lookup is disabled by default so a
// daemon launched from an attacker-writable directory can't be tricked
// into loading a malicious shared library.
func resolveLibPath(override string, devMode bool) (string, error) {
	if override != "" {
		info, err := os.Stat(override)
		if err != nil {
			return "", fmt.Errorf("onnxrt: configured lib path %q does not exist", override)
		}
		if info.IsDir() {
			return "", fmt.Errorf("onnxrt: configured lib path %q is a directory", override)
		}
		return override, nil
	}

	filename := libFilename()
	rel := filepath.Join("lib", runtime.GOOS+"-"+runtime.GOARCH, filename)
	relParent := filepath.Join("..", "lib", runtime.GOOS+"-"+runtime.GOARCH, filename)

	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		for _, r := range []string{rel, relParent} {
			p := filepath.Join(exeDir, r)
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
		}
	}

	if devMode {
		if dir, err := os.Getwd(); err == nil {
			for _, r := range []string{rel, relParent} {
				p := filepath.Join(dir, r)
				if _, err := os.Stat(p); err == nil {
					return p, nil
				}
			}
		}
	}

	return "", fmt.Errorf("onnxrt: shared library %s not found relative to executable (set an explicit override, or enable dev mode for CWD lookup)", filename)
}

func libFilename() string {
	switch runtime.GOOS {
	case "darwin":
		return "libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return "libonnxruntime.so"
	}
}
