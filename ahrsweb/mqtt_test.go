package ahrsweb

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/LuisKopp/RaspberryPilot/ahrs"
	"github.com/yosssi/gmq/mqtt"
	mqttclient "github.com/yosssi/gmq/mqtt/client"
)

type fakeBroker struct {
	published    []*mqttclient.PublishOptions
	err          error
	disconnected bool
	terminated   bool
}

func (b *fakeBroker) Publish(opts *mqttclient.PublishOptions) error {
	if b.err != nil {
		return b.err
	}
	b.published = append(b.published, opts)
	return nil
}

func (b *fakeBroker) Disconnect() error {
	b.disconnected = true
	return nil
}

func (b *fakeBroker) Terminate() { b.terminated = true }

func TestMQTTPublisher(t *testing.T) {
	b := new(fakeBroker)
	p := newMQTTPublisher(b, DefaultTopic)
	p.MinInterval = 50 * time.Millisecond

	clock := new(ahrs.ManualClock)
	f := ahrs.NewFilter(ahrs.NewMahony(ahrs.MahonyKp, ahrs.MahonyKi), clock)
	f.SetAttitude(ahrs.FromEuler(10*ahrs.Deg, 0, 0))
	s := ahrs.Sample{A: [3]float64{0, 0, 1}}
	for i := 0; i < 10; i++ {
		clock.Set(time.Duration(i) * 10 * time.Millisecond)
		f.UpdateSample(s)
		if err := p.Send(f, s); err != nil {
			t.Fatal(err)
		}
	}
	if len(b.published) != 2 {
		t.Fatalf("published %d messages, want 2", len(b.published))
	}
	m := b.published[1]
	if string(m.TopicName) != DefaultTopic || m.QoS != mqtt.QoS0 {
		t.Errorf("published to %q at QoS %d", m.TopicName, m.QoS)
	}
	var d AHRSData
	if err := json.Unmarshal(m.Message, &d); err != nil {
		t.Fatal(err)
	}
	if d.Algorithm != ahrs.AlgoMahony || d.T != 0.05 || d.A3 != 1 {
		t.Errorf("snapshot %+v", d)
	}

	p.Close()
	if !b.disconnected || !b.terminated {
		t.Error("client not shut down")
	}
}

func TestMQTTPublishError(t *testing.T) {
	b := &fakeBroker{err: errors.New("not connected")}
	p := newMQTTPublisher(b, DefaultTopic)
	f := ahrs.NewFilter(ahrs.NewMahony(ahrs.MahonyKp, ahrs.MahonyKi), new(ahrs.ManualClock))
	if err := p.Send(f, ahrs.Sample{}); !errors.Is(err, b.err) {
		t.Errorf("got %v", err)
	}
}
