package Prion3D

// Sink receives global solution snapshots on the root rank. Implementations
// live in the output package; tests use counting stubs.
type Sink interface {
	WriteSnapshot(frame int, time float64, name string, field []float64) error
}

// writeOutput gathers the distributed field on the root rank and hands the
// global vector to the sink. The gather is collective; every rank must call
// this even though only root writes.
func (s *Solver) writeOutput(sink Sink, frame int, time float64) error {
	peak := 0.0
	for _, v := range s.u.Owned {
		if v > peak {
			peak = v
		}
	}
	peak = s.comm.AllReduceMax(peak)
	global := s.u.GatherOnRoot()
	if !s.comm.IsRoot() {
		return nil
	}
	s.logf("output frame %d at t = %g, max c = %g\n", frame, time, peak)
	if sink == nil {
		return nil
	}
	return sink.WriteSnapshot(frame, time, s.cfg.FieldName, global)
}
