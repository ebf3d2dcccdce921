package gciso

// NewEncryptRegistry returns a fresh registry for encryption transforms.
// Its only built-in is the identity transform, since no disc-level cipher
// exists for this platform; file objects for formats carrying encrypted
// payloads look transforms up here by name.
func NewEncryptRegistry() *TransformRegistry {
	return NewTransformRegistry(identityService{})
}

type identityService struct{}

func (identityService) Name() string { return "none" }

func (identityService) Apply(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (identityService) Invert(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
