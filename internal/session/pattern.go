package session

// The pattern operations below are deterministic, pure transforms over a
// single track's steps/parameterLocks, bounded by the track's own
// stepCount. Indices at or beyond stepCount are left untouched, and
// rotate, reverse and mirror leave a track with stepCount below 2 as it is.

func rotateTrack(t Track, n int) Track {
	sc := t.StepCount
	if sc <= 1 {
		return t
	}
	shift := ((n % sc) + sc) % sc
	if shift == 0 {
		return t
	}
	var steps [MaxSteps]bool
	var locks [MaxSteps]*ParameterLock
	for i := 0; i < sc; i++ {
		src := (i - shift + sc) % sc
		steps[i] = t.Steps[src]
		locks[i] = t.ParameterLocks[src]
	}
	for i := sc; i < MaxSteps; i++ {
		steps[i] = t.Steps[i]
		locks[i] = t.ParameterLocks[i]
	}
	t.Steps = steps
	t.ParameterLocks = locks
	return t
}

func invertTrack(t Track) Track {
	for i := 0; i < t.StepCount; i++ {
		t.Steps[i] = !t.Steps[i]
	}
	return t
}

func reverseTrack(t Track) Track {
	sc := t.StepCount
	for i, j := 0, sc-1; i < j; i, j = i+1, j-1 {
		t.Steps[i], t.Steps[j] = t.Steps[j], t.Steps[i]
		t.ParameterLocks[i], t.ParameterLocks[j] = t.ParameterLocks[j], t.ParameterLocks[i]
	}
	return t
}

// mirrorTrack overwrites the second half of the pattern with a
// reflection of the first half, producing a palindrome of length
// stepCount. An odd stepCount's center slot is left as-is.
func mirrorTrack(t Track) Track {
	sc := t.StepCount
	half := sc / 2
	for i := 0; i < half; i++ {
		mirror := sc - 1 - i
		t.Steps[mirror] = t.Steps[i]
		t.ParameterLocks[mirror] = t.ParameterLocks[i]
	}
	return t
}

// euclideanFillTrack overwrites steps[0:stepCount] with a Euclidean
// rhythm spreading `pulses` hits as evenly as possible across stepCount
// slots (computed by bjorklund below; it gives the same pattern as
// Bjorklund's algorithm, with the first hit on slot 0). Existing parameter
// locks beyond the new hit pattern are left in place; pulses <= 0 clears
// the pattern, pulses >= stepCount fills it solid.
func euclideanFillTrack(t Track, pulses int) Track {
	sc := t.StepCount
	if sc <= 0 {
		return t
	}
	if pulses < 0 {
		pulses = 0
	}
	if pulses > sc {
		pulses = sc
	}
	pattern := bjorklund(pulses, sc)
	for i := 0; i < sc; i++ {
		t.Steps[i] = pattern[i]
	}
	return t
}

// bjorklund computes an even distribution of `pulses` hits across
// `steps` slots using the Fraction-walk form of Euclidean rhythms: slot
// i fires whenever floor(i*pulses/steps) advances past
// floor((i-1)*pulses/steps). This produces the same hit count as the
// classical Bjorklund construction and spaces hits maximally evenly,
// without Bjorklund's recursive bracket-merging.
func bjorklund(pulses, steps int) []bool {
	out := make([]bool, steps)
	if steps <= 0 || pulses <= 0 {
		return out
	}
	if pulses >= steps {
		for i := range out {
			out[i] = true
		}
		return out
	}
	prev := -1
	for i := 0; i < steps; i++ {
		cur := (i * pulses) / steps
		if cur != prev {
			out[i] = true
		}
		prev = cur
	}
	return out
}
