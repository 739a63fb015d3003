package lifecycle

import (
	"context"
	"log"
	"strconv"

	"github.com/sweeney/contact-sensor/internal/clock"
	"github.com/sweeney/contact-sensor/internal/logic"
	"github.com/sweeney/contact-sensor/internal/mqtt"
)

// Record suffixes, in publish order.
const (
	TopicFirmware  = "firmwareVersion"
	TopicHostname  = "hostName"
	TopicIP        = "ip"
	TopicBootCount = "bootCount"
	TopicBootState = "bootState"
	TopicState     = "state"
	TopicReason    = "updateReason"
	TopicTime      = "time"
	TopicMillis    = "millis"
)

// telemetry builds the batch. The time record is left out entirely when
// no time source answered.
func (o *Orchestrator) telemetry(ctx context.Context) []mqtt.Record {
	ip := ""
	if addr, err := o.d.Network.Addr(); err == nil {
		ip = addr.String()
	}

	records := []mqtt.Record{
		{Suffix: TopicFirmware, Value: o.cfg.Firmware},
		{Suffix: TopicHostname, Value: o.cfg.Identity.Hostname},
		{Suffix: TopicIP, Value: ip},
		{Suffix: TopicBootCount, Value: strconv.Itoa(o.boot.Count)},
		{Suffix: TopicBootState, Value: string(o.boot.SensorState)},
		{Suffix: TopicState, Value: string(o.currentState())},
		{Suffix: TopicReason, Value: o.boot.Reason},
	}

	if o.d.Clock != nil {
		if now, err := o.d.Clock.Fetch(ctx); err == nil {
			records = append(records, mqtt.Record{Suffix: TopicTime, Value: clock.Format(now, o.cfg.TimeOffset)})
		} else {
			log.Printf("lifecycle: %v, time not published", err)
		}
	}

	elapsed := o.d.Now().Sub(o.boot.Time).Milliseconds()
	records = append(records, mqtt.Record{Suffix: TopicMillis, Value: strconv.FormatInt(elapsed, 10)})
	return records
}

func (o *Orchestrator) currentState() logic.State {
	level, err := o.d.Reader.Read()
	if err != nil {
		log.Printf("lifecycle: read sensor: %v", err)
		return logic.StateUndefined
	}
	s := logic.ReadState(o.cfg.Identity.Sensor, o.cfg.Identity.Polarity, level)
	if o.d.Tracker != nil {
		o.d.Tracker.SetSensor(s)
	}
	return s
}
