package fileutils

import "context"

// WatchFile emits an event whenever the file's content hash changes between
// ticks. Hash errors are reported through onErr and the previous hash is
// kept, so a transiently unreadable file does not fire the watcher.
func WatchFile(ctx context.Context, path string, tick <-chan struct{}, onErr func(err error)) (chan struct{}, error) {
	ch := make(chan struct{})

	lastHash, err := ComputeFileHash(path)
	if err != nil {
		return nil, err
	}

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick:
				newHash, err := ComputeFileHash(path)
				if err != nil {
					onErr(err)
					continue
				}
				if newHash != lastHash {
					lastHash = newHash
					ch <- struct{}{}
				}
			}
		}
	}()

	return ch, nil
}
