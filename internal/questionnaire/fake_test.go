package questionnaire

import (
	"context"
	"sync/atomic"
)

// fakeClient answers with a fixed questionnaire and counts remote calls.
type fakeClient struct {
	details      map[string]string
	expCalls     atomic.Int32
	listCalls    atomic.Int32
	detailsCalls atomic.Int32
	err          error
}

func newFakeClient() *fakeClient {
	return &fakeClient{details: fixtureDetails()}
}

func (f *fakeClient) ExpNameToProposalIDs(context.Context) (map[string]string, error) {
	f.expCalls.Add(1)
	return map[string]string{
		"tstx53416": "X534",
		"tstlr3216": "LR32",
		"mfxlu3417": "LU34",
	}, nil
}

func (f *fakeClient) ProposalsForRun(context.Context, string) (map[string]Proposal, error) {
	f.listCalls.Add(1)
	return map[string]Proposal{
		"X534": {Instrument: "TST", ProposalID: "X534"},
		"LR32": {Instrument: "TST", ProposalID: "LR32"},
		"LU34": {Instrument: "MFX", ProposalID: "LU34"},
	}, nil
}

func (f *fakeClient) ProposalDetailsForRun(context.Context, string, string) (map[string]string, error) {
	f.detailsCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]string, len(f.details))
	for k, v := range f.details {
		out[k] = v
	}
	return out, nil
}

func fixtureDetails() map[string]string {
	return map[string]string{
		"pcdssetup-motors-1-location":       "Hutch-main experimental",
		"pcdssetup-motors-1-name":           "sam_x",
		"pcdssetup-motors-1-purpose":        "sample x motion",
		"pcdssetup-motors-1-pvbase":         "TST:USR:MMS:01",
		"pcdssetup-motors-1-stageidentity":  "IMS MD23",
		"pcdssetup-motors-2-location":       "Hutch-main experimental",
		"pcdssetup-motors-2-name":           "sam_z",
		"pcdssetup-motors-2-purpose":        "sample z motion",
		"pcdssetup-motors-2-pvbase":         "TST:USR:MMS:02",
		"pcdssetup-motors-2-stageidentity":  "IMS MD23",
		"pcdssetup-motors-3-location":       "Hutch-main experimental",
		"pcdssetup-motors-3-name":           "sam_y",
		"pcdssetup-motors-3-purpose":        "sample y motion",
		"pcdssetup-motors-3-pvbase":         "TST:USR:MMS:03",
		"pcdssetup-motors-3-stageidentity":  "IMS MD32",
		"pcdssetup-motors-4-location":       "Hutch-main experimental",
		"pcdssetup-motors-4-name":           "sam_r",
		"pcdssetup-motors-4-purpose":        "sample rotation",
		"pcdssetup-motors-4-pvbase":         "TST:USR:MMS:04",
		"pcdssetup-motors-4-stageidentity":  "IMS MD23",
		"pcdssetup-motors-5-location":       "Hutch-main experimental",
		"pcdssetup-motors-5-name":           "sam_az",
		"pcdssetup-motors-5-purpose":        "sample azimuth",
		"pcdssetup-motors-5-pvbase":         "TST:USR:MMS:05",
		"pcdssetup-motors-5-stageidentity":  "IMS MD23",
		"pcdssetup-motors-6-location":       "Hutch-main experimental",
		"pcdssetup-motors-6-name":           "sam_flip",
		"pcdssetup-motors-6-purpose":        "sample flip",
		"pcdssetup-motors-6-pvbase":         "TST:USR:MMS:06",
		"pcdssetup-motors-6-stageidentity":  "IMS MD23",
		"pcdssetup-trig-1-delay":            "0.00089",
		"pcdssetup-trig-1-eventcode":        "198",
		"pcdssetup-trig-1-name":             "Overview_trig",
		"pcdssetup-trig-1-polarity":         "positive",
		"pcdssetup-trig-1-purpose":          "Overview",
		"pcdssetup-trig-1-pvbase":           "MFX:REC:EVR:02:TRIG1",
		"pcdssetup-trig-1-width":            "0.00075",
		"pcdssetup-trig-2-delay":            "0.000894348",
		"pcdssetup-trig-2-eventcode":        "198",
		"pcdssetup-trig-2-name":             "Meniscus_trig",
		"pcdssetup-trig-2-polarity":         "positive",
		"pcdssetup-trig-2-purpose":          "Meniscus",
		"pcdssetup-trig-2-pvbase":           "MFX:REC:EVR:02:TRIG3",
		"pcdssetup-trig-2-width":            "0.0005",
		"pcdssetup-ao-1-device":             "Acromag IP231 16-bit",
		"pcdssetup-ao-1-name":               "irLed",
		"pcdssetup-ao-1-purpose":            "IR LED",
		"pcdssetup-ao-2-channel":            "6",
		"pcdssetup-ao-2-device":             "Acromag IP231 16-bit",
		"pcdssetup-ao-2-name":               "laser_shutter_opo",
		"pcdssetup-ao-2-purpose":            "OPO Shutter",
		"pcdssetup-ao-3-channel":            "7",
		"pcdssetup-ao-3-device":             "Acromag IP231 16-bit",
		"pcdssetup-ao-3-name":               "laser_shutter_evo1",
		"pcdssetup-ao-3-purpose":            "EVO Shutter1",
		"pcdssetup-ao-4-channel":            "2",
		"pcdssetup-ao-4-device":             "Acromag IP231 16-bit",
		"pcdssetup-ao-4-name":               "laser_shutter_evo2",
		"pcdssetup-ao-4-purpose":            "EVO Shutter2",
		"pcdssetup-ao-5-channel":            "3",
		"pcdssetup-ao-5-device":             "Acromag IP231 16-bit",
		"pcdssetup-ao-5-name":               "laser_shutter_evo3",
		"pcdssetup-ao-5-purpose":            "EVO Shutter3",
		"pcdssetup-ao-1-pvbase":             "MFX:USR:ao1",
		"pcdssetup-ao-2-pvbase":             "MFX:USR:ao1",
		"pcdssetup-ao-3-pvbase":             "MFX:USR:ao1",
		"pcdssetup-ao-4-pvbase":             "MFX:USR:ao1",
		"pcdssetup-ao-5-pvbase":             "MFX:USR:ao1",
		"pcdssetup-ai-1-device":             "Acromag IP231 16-bit",
		"pcdssetup-ai-1-name":               "irLed",
		"pcdssetup-ai-1-purpose":            "IR LED",
		"pcdssetup-ai-1-pvbase":             "MFX:USR:ai1",
		"pcdssetup-ai-1-channel":            "7",
		"pcdssetup-motors-11-purpose":       "Von Hamos vertical",
		"pcdssetup-motors-11-stageidentity": "Beckhoff",
		"pcdssetup-motors-11-location":      "XPP goniometer",
		"pcdssetup-motors-11-pvbase":        "HXX:VON_HAMOS:MMS:01",
		"pcdssetup-motors-11-name":          "vh_y",
	}
}
