package session

// Apply is the single pure entry point: for all (state, mutation) it
// returns a new state and never mutates its input.
// A nil error means the mutation was accepted; a non-nil error means the
// returned state is identical to the input and reason is the value the
// authority should echo in a rejected(seq, reason) message. Unknown
// mutation kinds are absorbed silently — the state is returned unchanged
// rather than erroring, since an unrecognised Kind can only arrive from
// a version skew the server should shrug off, not punish.
func Apply(s Session, m Mutation) (Session, error) {
	switch mut := m.(type) {
	case ToggleStep:
		return applyToggleStep(s, mut)
	case SetTempo:
		out := s.Clone()
		out.Tempo = ClampTempo(mut.Tempo)
		return out, nil
	case SetSwing:
		out := s.Clone()
		out.Swing = ClampSwing(mut.Swing)
		return out, nil
	case SetTrackVolume:
		return withTrack(s, mut.TrackID, func(t Track) Track {
			t.Volume = ClampVolume(mut.Volume)
			return t
		})
	case SetTrackTranspose:
		return withTrack(s, mut.TrackID, func(t Track) Track {
			t.Transpose = ClampTranspose(mut.Transpose)
			return t
		})
	case SetTrackStepCount:
		return withTrack(s, mut.TrackID, func(t Track) Track {
			t.StepCount = ClampStepCount(mut.StepCount)
			return t
		})
	case AddTrack:
		return applyAddTrack(s, mut)
	case DeleteTrack:
		return applyDeleteTrack(s, mut)
	case ClearTrack:
		return withTrack(s, mut.TrackID, func(t Track) Track {
			t.Steps = [MaxSteps]bool{}
			t.ParameterLocks = [MaxSteps]*ParameterLock{}
			return t
		})
	case SetTrackSample:
		return withTrack(s, mut.TrackID, func(t Track) Track {
			t.SampleID = mut.SampleID
			if mut.Name != nil {
				t.Name = *mut.Name
			}
			return t
		})
	case SetParameterLock:
		return applySetParameterLock(s, mut)
	case CopySequence:
		return applyCopySequence(s, mut)
	case MoveSequence:
		return applyMoveSequence(s, mut)
	case SetEffects:
		out := s.Clone()
		out.Effects = mut.Effects
		return out, nil
	case SetScale:
		out := s.Clone()
		out.Scale = mut.Scale
		return out, nil
	case SetSessionName:
		out := s.Clone()
		out.Name = mut.Name
		return out, nil
	case SetLoopRegion:
		return applySetLoopRegion(s, mut)
	case RotatePattern:
		return withTrack(s, mut.TrackID, func(t Track) Track {
			return rotateTrack(t, mut.N)
		})
	case InvertPattern:
		return withTrack(s, mut.TrackID, func(t Track) Track {
			return invertTrack(t)
		})
	case ReversePattern:
		return withTrack(s, mut.TrackID, func(t Track) Track {
			return reverseTrack(t)
		})
	case MirrorPattern:
		return withTrack(s, mut.TrackID, func(t Track) Track {
			return mirrorTrack(t)
		})
	case EuclideanFill:
		return withTrack(s, mut.TrackID, func(t Track) Track {
			return euclideanFillTrack(t, mut.Pulses)
		})
	case ReorderTracks:
		return applyReorderTracks(s, mut)
	case ReorderTrackByID:
		return applyReorderTrackByID(s, mut)
	case SetTrackMuted:
		return withTrack(s, mut.TrackID, func(t Track) Track {
			t.Muted = mut.Muted
			return t
		})
	case SetTrackSoloed:
		return withTrack(s, mut.TrackID, func(t Track) Track {
			t.Soloed = mut.Soloed
			return t
		})
	case ResetState:
		return New(), nil
	default:
		return s, nil
	}
}

// withTrack returns a clone of s with the track matching trackID
// replaced by fn's result. A missing track is a no-op: delete_track
// is explicitly a no-op when absent, and the other per-track mutations
// share that forgiving behavior since the target may have been
// concurrently deleted by another client.
func withTrack(s Session, trackID string, fn func(Track) Track) (Session, error) {
	idx := s.TrackIndex(trackID)
	if idx == -1 {
		return s, nil
	}
	out := s.Clone()
	out.Tracks[idx] = fn(out.Tracks[idx])
	return out, nil
}

func applyToggleStep(s Session, m ToggleStep) (Session, error) {
	if m.Step < 0 || m.Step >= MaxSteps {
		return s, nil
	}
	return withTrack(s, m.TrackID, func(t Track) Track {
		t.Steps[m.Step] = !t.Steps[m.Step]
		return t
	})
}

func applyAddTrack(s Session, m AddTrack) (Session, error) {
	if s.TrackIndex(m.Track.ID) != -1 {
		return s, ErrDuplicateTrackID
	}
	if len(s.Tracks) >= MaxTracks {
		return s, ErrTrackLimitExceeded
	}
	out := s.Clone()
	t := m.Track
	t.StepCount = ClampStepCount(t.StepCount)
	t.Volume = ClampVolume(t.Volume)
	t.Transpose = ClampTranspose(t.Transpose)
	out.Tracks = append(out.Tracks, t)
	return out, nil
}

func applyDeleteTrack(s Session, m DeleteTrack) (Session, error) {
	idx := s.TrackIndex(m.TrackID)
	if idx == -1 {
		return s, nil
	}
	out := s.Clone()
	out.Tracks = append(out.Tracks[:idx:idx], out.Tracks[idx+1:]...)
	return out, nil
}

func applySetParameterLock(s Session, m SetParameterLock) (Session, error) {
	if m.Step < 0 || m.Step >= MaxSteps {
		return s, nil
	}
	return withTrack(s, m.TrackID, func(t Track) Track {
		t.ParameterLocks[m.Step] = m.Lock
		return t
	})
}

func applyCopySequence(s Session, m CopySequence) (Session, error) {
	srcIdx := s.TrackIndex(m.SourceTrackID)
	dstIdx := s.TrackIndex(m.TargetTrackID)
	if srcIdx == -1 || dstIdx == -1 {
		return s, nil
	}
	out := s.Clone()
	src := out.Tracks[srcIdx]
	dst := out.Tracks[dstIdx]
	dst.Steps = src.Steps
	dst.ParameterLocks = src.ParameterLocks
	dst.StepCount = src.StepCount
	out.Tracks[dstIdx] = dst
	return out, nil
}

func applyMoveSequence(s Session, m MoveSequence) (Session, error) {
	out, err := applyCopySequence(s, CopySequence{baseMutation{KindCopySequence}, m.SourceTrackID, m.TargetTrackID})
	if err != nil {
		return s, err
	}
	srcIdx := out.TrackIndex(m.SourceTrackID)
	if srcIdx == -1 {
		return out, nil
	}
	src := out.Tracks[srcIdx]
	src.Steps = [MaxSteps]bool{}
	src.ParameterLocks = [MaxSteps]*ParameterLock{}
	src.StepCount = DefaultStepCount
	out.Tracks[srcIdx] = src
	return out, nil
}

func applySetLoopRegion(s Session, m SetLoopRegion) (Session, error) {
	if m.Region != nil && !ValidLoopRegion(*m.Region) {
		return s, ErrInvalidLoopRegion
	}
	out := s.Clone()
	out.LoopRegion = m.Region
	return out, nil
}

func applyReorderTracks(s Session, m ReorderTracks) (Session, error) {
	n := len(s.Tracks)
	if n == 0 || m.From < 0 || m.From >= n || m.To < 0 || m.To >= n {
		return s, nil
	}
	out := s.Clone()
	t := out.Tracks[m.From]
	out.Tracks = append(out.Tracks[:m.From:m.From], out.Tracks[m.From+1:]...)
	to := m.To
	if to > len(out.Tracks) {
		to = len(out.Tracks)
	}
	out.Tracks = append(out.Tracks[:to], append([]Track{t}, out.Tracks[to:]...)...)
	return out, nil
}

func applyReorderTrackByID(s Session, m ReorderTrackByID) (Session, error) {
	idx := s.TrackIndex(m.TrackID)
	if idx == -1 {
		return s, nil
	}
	out := s.Clone()
	t := out.Tracks[idx]
	rest := append(out.Tracks[:idx:idx], out.Tracks[idx+1:]...)

	if m.BeforeID == "" {
		out.Tracks = append(rest, t)
		return out, nil
	}
	beforeIdx := -1
	for i := range rest {
		if rest[i].ID == m.BeforeID {
			beforeIdx = i
			break
		}
	}
	if beforeIdx == -1 {
		out.Tracks = append(rest, t)
		return out, nil
	}
	result := make([]Track, 0, len(rest)+1)
	result = append(result, rest[:beforeIdx]...)
	result = append(result, t)
	result = append(result, rest[beforeIdx:]...)
	out.Tracks = result
	return out, nil
}
