// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/tomtom215/trailguard/internal/detection"
	"github.com/tomtom215/trailguard/internal/metrics"
	"github.com/tomtom215/trailguard/internal/models"
	"github.com/tomtom215/trailguard/internal/reader"
	"github.com/tomtom215/trailguard/internal/sink"
)

const (
	iamDelete = `{"eventID":"ct-1","eventTime":"2024-03-01T10:00:00Z","eventSource":"iam.amazonaws.com",` +
		`"eventName":"DeleteUser","sourceIPAddress":"203.0.113.66"}`
	iamBenign = `{"eventID":"ct-2","eventTime":"2024-03-01T10:01:00Z","eventSource":"iam.amazonaws.com",` +
		`"eventName":"ListUsers","sourceIPAddress":"203.0.113.66"}`
	portProbe = `{"id":"gd-1","type":"Recon:EC2/PortProbeUnprotectedPort","severity":2.0,` +
		`"service":{"eventLastSeen":"2024-03-02T00:00:00Z"}}`
	dnsExfil = `{"id":"gd-2","type":"Trojan:EC2/DNSDataExfiltration","severity":8.0}`

	flowHeader = "version,account-id,interface-id,srcaddr,dstaddr,srcport,dstport,protocol,packets,bytes,start,end,action,log-status"
	flowRow    = "2,123456789012,eni-1,203.0.113.66,10.0.0.5,51515,22,6,10,840,1700000000,1700000060,ACCEPT,OK"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 123456000, time.UTC)

func fixedClock() time.Time { return fixedNow }

func quietLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func writeInput(t *testing.T, dir, name string, lines ...string) {
	t.Helper()
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeInput(t, dir, "cloudtrail.jsonl", iamDelete, `{"eventName":`, "", iamBenign)
	writeInput(t, dir, "guardduty_findings.jsonl", portProbe, "not json", dnsExfil)
	writeInput(t, dir, "vpc_flow.csv", flowHeader, flowRow, "2,123,eni")
	return dir
}

func newEngine(t *testing.T, opts ...detection.Option) *detection.Engine {
	t.Helper()
	e, err := detection.NewEngine(detection.DefaultReferenceData(), opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func run(t *testing.T, input string, cfg Config, opts ...detection.Option) ([]models.Alert, *Summary) {
	t.Helper()
	if cfg.Clock == nil {
		cfg.Clock = fixedClock
	}
	if cfg.Logger == nil {
		cfg.Logger = quietLogger()
	}
	alerts, summary, err := Detect(context.Background(), newEngine(t, opts...), input, cfg)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	return alerts, summary
}

func key(a models.Alert) string {
	return fmt.Sprintf("%s|%s|%s|%s", a.ThreatType, a.EventID, a.FindingID, a.Timestamp)
}

func alertKeys(alerts []models.Alert) []string {
	keys := make([]string, len(alerts))
	for i, a := range alerts {
		keys[i] = key(a)
	}
	slices.Sort(keys)
	return keys
}

func TestRun_StreamMode(t *testing.T) {
	t.Parallel()

	alerts, summary := run(t, fixtureDir(t), Config{})

	want := []string{
		"GD_Recon_PortProbe||gd-1|2024-03-02T00:00:00Z",
		"GD_Trojan_DNSExfiltration||gd-2|2024-05-06T07:08:09.123456Z",
		"IAMPrivilegeTampering|ct-1||2024-03-01T10:00:00Z",
	}
	if got := alertKeys(alerts); !slices.Equal(got, want) {
		t.Errorf("alerts =\n%v\nwant\n%v", got, want)
	}

	if summary.Records[models.SourceCloudTrail] != 2 ||
		summary.Records[models.SourceGuardDuty] != 2 ||
		summary.Records[models.SourceVPCFlow] != 1 {
		t.Errorf("records = %v", summary.Records)
	}
	if summary.Files != 3 || summary.Lines != 10 {
		t.Errorf("files=%d lines=%d", summary.Files, summary.Lines)
	}
	// header row is a malformed flow row; broken JSON, "not json" and the short row are unrecognized
	if summary.Dropped != 1 || summary.Unrecognized != 3 {
		t.Errorf("dropped=%d unrecognized=%d", summary.Dropped, summary.Unrecognized)
	}
	if summary.Alerts != 3 || summary.AlertsByType["GD_Recon_PortProbe"] != 1 {
		t.Errorf("alerts=%d by type=%v", summary.Alerts, summary.AlertsByType)
	}
	if summary.RunID == "" || summary.Mode != ModeStream {
		t.Errorf("summary metadata = %+v", summary)
	}
}

func TestRun_BatchMode(t *testing.T) {
	t.Parallel()

	dir := fixtureDir(t)
	writeInput(t, dir, "notes.txt", iamDelete)

	alerts, summary := run(t, dir, Config{Mode: ModeBatch})

	if len(alerts) != 3 {
		t.Errorf("got %d alerts, want 3: %v", len(alerts), alertKeys(alerts))
	}
	if summary.FilesSkipped != 1 {
		t.Errorf("files skipped = %d, want 1 (notes.txt)", summary.FilesSkipped)
	}
	// broken JSON, "not json", flow header and short flow row
	if summary.Dropped != 4 || summary.Unrecognized != 0 {
		t.Errorf("dropped=%d unrecognized=%d", summary.Dropped, summary.Unrecognized)
	}
}

func TestRun_ModesAgreeOnWellFormedInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeInput(t, dir, "cloudtrail.jsonl", iamDelete, iamBenign)
	writeInput(t, dir, "guardduty_findings.jsonl", portProbe, dnsExfil)
	writeInput(t, dir, "vpc_flow.csv", flowRow)

	stream, _ := run(t, dir, Config{Mode: ModeStream})
	batch, _ := run(t, dir, Config{Mode: ModeBatch})
	if !slices.Equal(alertKeys(stream), alertKeys(batch)) {
		t.Errorf("stream %v != batch %v", alertKeys(stream), alertKeys(batch))
	}
}

func TestRun_MalformedLinesDoNotChangeAlerts(t *testing.T) {
	t.Parallel()

	clean := t.TempDir()
	writeInput(t, clean, "cloudtrail.jsonl", iamDelete, iamBenign)

	noisy := t.TempDir()
	writeInput(t, noisy, "cloudtrail.jsonl",
		"garbage", iamDelete, "[1,2,3]", `{"eventSource":`, "   ", iamBenign, "\x00\x01")

	for _, mode := range []string{ModeStream, ModeBatch} {
		want, _ := run(t, clean, Config{Mode: mode})
		got, _ := run(t, noisy, Config{Mode: mode})
		if !slices.Equal(alertKeys(got), alertKeys(want)) {
			t.Errorf("%s: noisy input changed alerts: %v vs %v", mode, alertKeys(got), alertKeys(want))
		}
	}
}

func TestRun_FlowInputProducesNoAlerts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeInput(t, dir, "vpc_flow.csv",
		flowRow,
		"2,123456789012,eni-2,203.0.113.66,10.0.0.5,0,0,6,1,40,1700000000,1700000060,REJECT,OK",
		"2,123456789012,eni-3,10.0.0.5,198.51.100.23,65535,31337,17,9000000000,9223372036854775807,1700000000,1700000060,ACCEPT,OK",
		"2,123456789012,eni-4,10.0.0.9,192.0.2.200,443,4444,1,3,999999999999,1700000000,1700003600,REJECT,OK",
	)

	for _, mode := range []string{ModeStream, ModeBatch} {
		alerts, summary := run(t, dir, Config{Mode: mode})
		if len(alerts) != 0 {
			t.Errorf("%s: flow records produced %d alerts", mode, len(alerts))
		}
		if summary.Records[models.SourceVPCFlow] != 4 || summary.Dropped != 0 {
			t.Errorf("%s: flow records = %d, dropped = %d, want 4 and 0",
				mode, summary.Records[models.SourceVPCFlow], summary.Dropped)
		}
	}
}

func TestRun_FlowRulesUseClockTimestamp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeInput(t, dir, "vpc_flow.csv", flowRow)

	ssh := detection.NewRuleFunc("ssh", func(rec models.FlowRecord) []models.Alert {
		if rec.DstPort != 22 {
			return nil
		}
		return []models.Alert{{ThreatType: "SSH", Severity: models.SeverityLow, Reason: "ssh"}}
	})
	alerts, _ := run(t, dir, Config{}, detection.WithFlowRules(ssh))
	if len(alerts) != 1 || alerts[0].Timestamp != "2024-05-06T07:08:09.123456Z" {
		t.Errorf("alerts = %+v", alerts)
	}
}

func TestRun_SingleFileInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeInput(t, dir, "events.log", iamDelete, portProbe)

	alerts, summary := run(t, filepath.Join(dir, "events.log"), Config{})
	if len(alerts) != 2 || summary.Files != 1 {
		t.Errorf("alerts=%d files=%d", len(alerts), summary.Files)
	}
}

func TestRun_MinSeverity(t *testing.T) {
	t.Parallel()

	alerts, summary := run(t, fixtureDir(t), Config{MinSeverity: models.SeverityHigh})
	for _, a := range alerts {
		if !a.Severity.AtLeast(models.SeverityHigh) {
			t.Errorf("alert below minimum severity: %+v", a)
		}
	}
	if len(alerts) != 2 || summary.Filtered != 1 {
		t.Errorf("alerts=%d filtered=%d", len(alerts), summary.Filtered)
	}
}

func TestRun_WorkersMatchSequential(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for i := range 12 {
		id := fmt.Sprintf("ct-%02d", i)
		ev := strings.Replace(iamDelete, `"ct-1"`, `"`+id+`"`, 1)
		writeInput(t, dir, fmt.Sprintf("part-%02d.jsonl", i), ev, iamBenign, portProbe)
	}

	sequential, _ := run(t, dir, Config{Workers: 1})
	parallel, summary := run(t, dir, Config{Workers: 4})

	if !slices.Equal(alertKeys(sequential), alertKeys(parallel)) {
		t.Errorf("parallel run differs from sequential run")
	}
	if summary.Alerts != 24 || summary.Files != 12 {
		t.Errorf("alerts=%d files=%d", summary.Alerts, summary.Files)
	}
}

func TestRun_SequentialOrderIsDeterministic(t *testing.T) {
	t.Parallel()

	dir := fixtureDir(t)
	first, _ := run(t, dir, Config{})
	second, _ := run(t, dir, Config{})
	if !slices.Equal(first, second) {
		t.Errorf("two runs over the same input differ")
	}
	// cloudtrail.jsonl sorts before guardduty_findings.jsonl
	if first[0].ThreatType != detection.ThreatIAMPrivilegeTampering {
		t.Errorf("first alert = %+v", first[0])
	}
}

func TestRun_PanickingRuleIsContained(t *testing.T) {
	t.Parallel()

	boom := detection.NewRuleFunc("boom", func(ev models.AuditEvent) []models.Alert {
		if ev.EventID == "ct-2" {
			panic("rule bug")
		}
		return nil
	})

	for _, mode := range []string{ModeStream, ModeBatch} {
		dir := t.TempDir()
		writeInput(t, dir, "cloudtrail.jsonl", iamBenign, iamDelete)

		alerts, summary := run(t, dir, Config{Mode: mode}, detection.WithAuditRules(boom))
		if len(alerts) != 1 || alerts[0].EventID != "ct-1" {
			t.Errorf("%s: alerts = %+v", mode, alerts)
		}
		if summary.Failed != 1 {
			t.Errorf("%s: failed = %d, want 1", mode, summary.Failed)
		}
	}
}

func TestRun_MissingInput(t *testing.T) {
	t.Parallel()

	_, _, err := Detect(context.Background(), newEngine(t), filepath.Join(t.TempDir(), "missing"), Config{Logger: quietLogger()})
	if !errors.Is(err, reader.ErrNotFound) {
		t.Errorf("expected reader.ErrNotFound, got %v", err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := New(newEngine(t), &Collector{}, Config{Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	summary, err := p.Run(ctx, fixtureDir(t))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if summary == nil || summary.Alerts != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New(newEngine(t), &Collector{}, Config{Mode: "realtime"}); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
	if _, err := New(nil, &Collector{}, Config{}); err == nil {
		t.Error("nil engine accepted")
	}
	if _, err := New(newEngine(t), nil, Config{}); err == nil {
		t.Error("nil writer accepted")
	}
}

func TestRun_IntoSink(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "alerts.json")
	s, err := sink.Open(out, sink.WithLogger(zerolog.Nop()), sink.WithFsync(false))
	if err != nil {
		t.Fatal(err)
	}
	p, err := New(newEngine(t), s, Config{Clock: fixedClock, Logger: quietLogger(), Workers: 3})
	if err != nil {
		t.Fatal(err)
	}
	summary, err := p.Run(context.Background(), fixtureDir(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var written []models.Alert
	if err := json.Unmarshal(data, &written); err != nil {
		t.Fatalf("sink output is not a JSON array: %v", err)
	}
	if int64(len(written)) != summary.Alerts || s.Count() != len(written) {
		t.Errorf("written=%d summary=%d count=%d", len(written), summary.Alerts, s.Count())
	}
	for _, a := range written {
		if a.Timestamp == "" || a.ThreatType == "" || a.Reason == "" || a.RecordID() == "" {
			t.Errorf("incomplete alert %+v", a)
		}
	}
}

func TestCollector(t *testing.T) {
	t.Parallel()

	var c Collector
	c.Write(models.Alert{ThreatType: "A"})
	c.Write(models.Alert{ThreatType: "B"})

	got := c.Alerts()
	got[0].ThreatType = "mutated"
	if c.Alerts()[0].ThreatType != "A" || c.Len() != 2 {
		t.Error("Alerts() must return a copy in write order")
	}
}

func TestSummaryThreatTypesSorted(t *testing.T) {
	t.Parallel()

	s := newSummary("id", "in", ModeStream, time.Now())
	s.AlertsByType["b"] = 1
	s.AlertsByType["a"] = 2
	if got := s.ThreatTypes(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("ThreatTypes() = %v", got)
	}
}

func TestRun_MalformedInputWarns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mode string
		file string
		line string
	}{
		{"batch audit", ModeBatch, "cloudtrail.jsonl", `{"eventName":`},
		{"batch finding", ModeBatch, "guardduty_findings.jsonl", "not json"},
		{"batch flow", ModeBatch, "vpc_flow.csv", flowHeader},
		{"stream flow", ModeStream, "vpc_flow.csv", flowHeader},
		{"stream audit", ModeStream, "cloudtrail.jsonl", `{"eventName":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeInput(t, dir, tt.file, tt.line)

			var buf bytes.Buffer
			logger := zerolog.New(&buf).Level(zerolog.InfoLevel)
			_, summary := run(t, dir, Config{Mode: tt.mode, Logger: &logger})

			if summary.Dropped+summary.Unrecognized != 1 {
				t.Errorf("dropped=%d unrecognized=%d, want one rejected line", summary.Dropped, summary.Unrecognized)
			}
			if !strings.Contains(buf.String(), `"level":"warn"`) {
				t.Errorf("no warning logged for malformed input:\n%s", buf.String())
			}
			if !strings.Contains(buf.String(), `"run_id":"`+summary.RunID+`"`) {
				t.Errorf("warning does not carry the run id:\n%s", buf.String())
			}
		})
	}
}

func TestRun_RecordsProcessedMetric(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "cloudtrail.jsonl", iamDelete, iamBenign)
	writeInput(t, dir, "vpc_flow.csv", flowRow)

	counter := func(kind models.SourceKind) float64 {
		return testutil.ToFloat64(metrics.RecordsProcessed.WithLabelValues(string(kind)))
	}
	ctBefore, flowBefore := counter(models.SourceCloudTrail), counter(models.SourceVPCFlow)

	run(t, dir, Config{})

	if got := counter(models.SourceCloudTrail) - ctBefore; got != 2 {
		t.Errorf("cloudtrail records metric grew by %v, want 2", got)
	}
	if got := counter(models.SourceVPCFlow) - flowBefore; got != 1 {
		t.Errorf("vpcflow records metric grew by %v, want 1", got)
	}
}
