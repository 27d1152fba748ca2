// Package directory answers public-key snapshot requests.
package directory

// Snapshotter is the read side of the registry the directory needs.
type Snapshotter interface {
	SnapshotPublicKeys() map[string]string
}

type Service struct {
	source Snapshotter
}

func New(source Snapshotter) *Service {
	return &Service{source: source}
}

// GetPublicKeys returns every registered username with its public key.
func (s *Service) GetPublicKeys() map[string]string {
	return s.source.SnapshotPublicKeys()
}
