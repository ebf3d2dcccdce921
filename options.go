package gciso

// EngineOption configures an Engine at Open time.
type EngineOption func(*Engine) error

// WithMaxImageSize overrides the maximum total image size AddFile and Build
// will produce (default MaxDiscSize, the standard GameCube disc capacity).
func WithMaxImageSize(n int64) EngineOption {
	return func(e *Engine) error {
		e.maxImageSize = n
		return nil
	}
}

// WithFileFactory overrides the File Factory used for Extract. The default
// is an empty factory (every file reads back as UnknownFile).
func WithFileFactory(f *FileFactory) EngineOption {
	return func(e *Engine) error {
		e.factory = f
		return nil
	}
}

// WithCompressRegistry overrides the compression transforms the engine
// owns (default NewCompressRegistry, the transforms built into this binary).
func WithCompressRegistry(r *TransformRegistry) EngineOption {
	return func(e *Engine) error {
		e.compress = r
		return nil
	}
}

// WithEncryptRegistry overrides the encryption transforms the engine owns
// (default NewEncryptRegistry, identity only).
func WithEncryptRegistry(r *TransformRegistry) EngineOption {
	return func(e *Engine) error {
		e.encrypt = r
		return nil
	}
}

// WithSysCode overrides the single-byte platform tag embedded in patch
// archives (default SysCodeGameCube).
func WithSysCode(code byte) EngineOption {
	return func(e *Engine) error {
		e.sysCode = code
		return nil
	}
}

// ProgressFunc is called at each build phase and file write so a driving
// application can render progress. stage is one of "system", "fst",
// "write"; done/total describe progress within that stage.
type ProgressFunc func(stage string, done, total int)

// WithProgress registers a progress callback. The core never depends on it
// for correctness; it exists purely to give the embedding CLI something to
// draw a progress bar from.
func WithProgress(fn ProgressFunc) EngineOption {
	return func(e *Engine) error {
		e.progress = fn
		return nil
	}
}

func (e *Engine) reportProgress(stage string, done, total int) {
	if e.progress != nil {
		e.progress(stage, done, total)
	}
}
