package k8s

import (
	"log"
	"sync"
)

// fanOut runs each of fns concurrently and waits for all to finish. A
// panicking fn is recovered and logged rather than taking down the whole
// request, so independent relation lookups fail in isolation
// (RelationLookupFailure), never the whole graph.
func fanOut(fns ...func()) {
	var wg sync.WaitGroup
	wg.Add(len(fns))
	for _, fn := range fns {
		fn := fn
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("k8s: relation lookup panicked: %v", r)
				}
			}()
			fn()
		}()
	}
	wg.Wait()
}
