package media

import (
	"fmt"
	"io"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// PrintDayStart writes the opening banner with the entities taking part.
// Rendering reads state only; it can be called any number of times.
func (m *Media) PrintDayStart(w io.Writer) {
	snaps := m.Snapshots()
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Bank day started")
	fmt.Fprintln(w, "================")
	if len(snaps) == 0 {
		fmt.Fprintln(w, "Nobody showed up today")
		return
	}
	for _, s := range snaps {
		if s.Role == "bank" {
			fmt.Fprintf(w, "  %-8s %-15s balance=%s\n", s.Role, s.Name, s.Amount.StringFixed(2))
		} else {
			fmt.Fprintf(w, "  %-8s %s\n", s.Role, s.Name)
		}
	}
}

// PrintDayEnd writes the summary of everything recorded so far.
func (m *Media) PrintDayEnd(w io.Writer) {
	FormatText(w, m.Summarize())
}

// PrintJSON writes the summary as JSON.
func (m *Media) PrintJSON(w io.Writer) error {
	return FormatJSON(w, m.Summarize())
}

// FormatText writes a summary in human-readable format.
func FormatText(w io.Writer, s *Summary) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Bank day ended")
	fmt.Fprintln(w, "==============")
	fmt.Fprintf(w, "Duration:     %v\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Operations:   %s (%s ok, %s failed)\n",
		formatNumber(s.TotalEvents), formatNumber(s.SuccessCount), formatNumber(s.FailureCount))
	fmt.Fprintf(w, "Ops/sec:      %.1f\n", s.OpsPerSec)
	fmt.Fprintf(w, "Deposited:    %s\n", s.Deposited.StringFixed(2))
	fmt.Fprintf(w, "Withdrawn:    %s\n", s.Withdrawn.StringFixed(2))

	if len(s.ByBank) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "By Bank:")
		for _, name := range s.BankNames() {
			bs := s.ByBank[name]
			fmt.Fprintf(w, "  %-15s deposits=%s withdrawals=%s failed=%s net=%s\n",
				name, formatNumber(bs.Deposits), formatNumber(bs.Withdrawals),
				formatNumber(bs.Failed), bs.Net().StringFixed(2))
		}
	}

	if len(s.ByActor) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "By Actor:")
		for _, name := range s.ActorNames() {
			as := s.ByActor[name]
			fmt.Fprintf(w, "  %-15s ops=%s ok=%s failed=%s amount=%s\n",
				name, formatNumber(as.Events), formatNumber(as.Succeeded),
				formatNumber(as.Failed), as.Amount.StringFixed(2))
		}
	}

	if len(s.Entities) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Balances:")
		for _, e := range s.Entities {
			if e.Role != "bank" {
				continue
			}
			fmt.Fprintf(w, "  %-15s %s\n", e.Name, e.Amount.StringFixed(2))
		}
	}
}

// FormatJSON writes a summary in JSON format.
func FormatJSON(w io.Writer, s *Summary) error {
	output := struct {
		Duration     string                    `json:"duration"`
		TotalEvents  int                       `json:"totalEvents"`
		SuccessCount int                       `json:"successCount"`
		FailureCount int                       `json:"failureCount"`
		OpsPerSec    float64                   `json:"opsPerSec"`
		Deposited    string                    `json:"deposited"`
		Withdrawn    string                    `json:"withdrawn"`
		Banks        map[string]jsonBankStats  `json:"banks"`
		Actors       map[string]jsonActorStats `json:"actors"`
		Balances     map[string]string         `json:"balances"`
	}{
		Duration:     s.Duration.Round(time.Millisecond).String(),
		TotalEvents:  s.TotalEvents,
		SuccessCount: s.SuccessCount,
		FailureCount: s.FailureCount,
		OpsPerSec:    s.OpsPerSec,
		Deposited:    s.Deposited.String(),
		Withdrawn:    s.Withdrawn.String(),
		Banks:        make(map[string]jsonBankStats, len(s.ByBank)),
		Actors:       make(map[string]jsonActorStats, len(s.ByActor)),
		Balances:     make(map[string]string),
	}

	for name, bs := range s.ByBank {
		output.Banks[name] = jsonBankStats{
			Deposits:    bs.Deposits,
			Withdrawals: bs.Withdrawals,
			Failed:      bs.Failed,
			Net:         bs.Net().String(),
		}
	}
	for name, as := range s.ByActor {
		output.Actors[name] = jsonActorStats{
			Events:    as.Events,
			Succeeded: as.Succeeded,
			Failed:    as.Failed,
			Amount:    as.Amount.String(),
		}
	}
	for _, e := range s.Entities {
		if e.Role == "bank" {
			output.Balances[e.Name] = e.Amount.String()
		}
	}

	encoder := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

type jsonBankStats struct {
	Deposits    int    `json:"deposits"`
	Withdrawals int    `json:"withdrawals"`
	Failed      int    `json:"failed"`
	Net         string `json:"net"`
}

type jsonActorStats struct {
	Events    int    `json:"events"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Amount    string `json:"amount"`
}

func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	s := strconv.Itoa(n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
