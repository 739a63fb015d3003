package logic

// ReadState maps a raw input level to the domain state for the given sensor.
// A normally-open switch inverts the level before the table is applied.
func ReadState(t SensorType, p Polarity, level bool) State {
	if p == NormallyOpen {
		level = !level
	}

	switch t {
	case SensorDoorWindow, SensorMailbox:
		if level {
			return StateClosed
		}
		return StateOpen
	case SensorFlood, SensorRain:
		if level {
			return StateDry
		}
		return StateWet
	default:
		return StateUndefined
	}
}
