package xdm

import (
	"encoding/json"
	"errors"
	"testing"

	v1 "github.com/aevon-lab/profile-relay/internal/api/v1"
	"github.com/stretchr/testify/require"
)

var testTarget = Target{
	OrgID:      "ORG@AdobeOrg",
	SchemaID:   "https://ns.adobe.com/tenant/schemas/profile",
	DatasetID:  "dataset-1",
	DataflowID: "flow-1",
}

func newProfileBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(NewRegistry(), KindProfile, testTarget)
	require.NoError(t, err)
	return b
}

func decodeEvent(t *testing.T, raw string) *v1.Event {
	t.Helper()
	var evt v1.Event
	require.NoError(t, json.Unmarshal([]byte(raw), &evt))
	return &evt
}

func entityJSON(t *testing.T, e Entity) map[string]interface{} {
	t.Helper()
	b, err := json.Marshal(e)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func dig(t *testing.T, m map[string]interface{}, path ...string) interface{} {
	t.Helper()
	var cur interface{} = m
	for _, p := range path {
		obj, ok := cur.(map[string]interface{})
		require.True(t, ok, "path %v: %q is not an object", path, p)
		cur, ok = obj[p]
		if !ok {
			return nil
		}
	}
	return cur
}

func TestBuilder_FullProfile(t *testing.T) {
	b := newProfileBuilder(t)
	evt := decodeEvent(t, `{
		"messageId": "m-1",
		"type": "track",
		"event": "Person Updated",
		"properties": {
			"personId": 1001,
			"companyId": "C-77",
			"email": "jane@example.com",
			"firstName": "Jane",
			"lastName": "Doe",
			"bpFlag": "Y",
			"studentFlag": 0,
			"ibmFlag": "maybe",
			"dqEmailFlag": "yes",
			"dqFlag": false,
			"personCreatedTS": "2024-08-06T10:00:00Z",
			"dataSourceCreatedTS": "2024-01-02",
			"dataSourceUpdatedTS": 1722939072000,
			"countryCode": "DE",
			"prefLanguageCode": "de_DE",
			"stateProvince": "US-CA",
			"city": "Berlin",
			"personContactTier": 3
		}
	}`)

	msg := b.Build(evt)
	require.Equal(t, testTarget.SchemaID, msg.Header.SchemaRef.ID)
	require.Equal(t, ContentType, msg.Header.SchemaRef.ContentType)
	require.Equal(t, testTarget.OrgID, msg.Header.ImsOrgID)
	require.Equal(t, testTarget.DatasetID, msg.Header.DatasetID)
	require.Equal(t, testTarget.DataflowID, msg.Header.FlowID)
	require.Equal(t, msg.Header.SchemaRef, msg.Body.XdmMeta.SchemaRef)

	e := entityJSON(t, msg.Body.XdmEntity)

	require.Equal(t, "1001", dig(t, e, "personID"))
	require.Equal(t, map[string]interface{}{
		"sourceID":         "1001",
		"sourceInstanceID": "CDIP-AEP",
		"sourceKey":        "1001@CDIP-AEP.CDIP",
		"sourceType":       "CDIP",
	}, dig(t, e, "b2b", "personKey"))
	require.Equal(t, "C-77@CDIP-AEP.CDIP", dig(t, e, "b2b", "accountKey", "sourceKey"))

	components := dig(t, e, "personComponents").([]interface{})
	require.Len(t, components, 1)
	require.Equal(t, "C-77", dig(t, components[0].(map[string]interface{}), "sourceAccountKey", "sourceID"))

	require.Equal(t, "jane@example.com", dig(t, e, "_ibm", "b2bperson", "contactDetails", "email"))
	require.Equal(t, map[string]interface{}{"firstName": "Jane", "lastName": "Doe"}, dig(t, e, "person", "name"))

	require.Equal(t, true, dig(t, e, "_ibm", "b2bperson", "classification", "bpFlag"))
	require.Equal(t, false, dig(t, e, "_ibm", "b2bperson", "classification", "studentFlag"), "present falsy flags are normalized")
	require.Nil(t, dig(t, e, "_ibm", "b2bperson", "classification", "ibmFlag"), "unrecognized flag is pruned")
	require.Equal(t, true, dig(t, e, "_ibm", "b2bperson", "dataquality", "dqEmailFlag"))
	require.Nil(t, dig(t, e, "_ibm", "b2bperson", "dataquality", "dqFlg"), "falsy data quality flags stay absent")

	require.Equal(t, "2024-08-06T10:00:00.000Z", dig(t, e, "_ibm", "b2bperson", "controlData", "personCreatedTS"))
	require.Equal(t, EpochDefault, dig(t, e, "_ibm", "b2bperson", "controlData", "personUpdatedTS"))
	require.Equal(t, "2024-01-02T00:00:00.000Z", dig(t, e, "extSourceSystemAudit", "createdDate"))
	require.Equal(t, "2024-08-06T10:11:12.000Z", dig(t, e, "extSourceSystemAudit", "lastUpdatedDate"))
	require.Equal(t, "2024-01-02T00:00:00.000Z", dig(t, e, "_repo", "createDate"))

	require.Equal(t, "DE", dig(t, e, "billingAddress", "countryCode"))
	require.Equal(t, "DE", dig(t, e, "workAddress", "countryCode"))
	require.Equal(t, "CA", dig(t, e, "workAddress", "state"))
	require.Equal(t, "Berlin", dig(t, e, "workAddress", "city"))
	require.Equal(t, "de_DE", dig(t, e, "_ibm", "b2bperson", "indivDetails", "prefLanguage"))
	require.Equal(t, "3", dig(t, e, "_ibm", "b2bperson", "responsescore", "personConfidenceScore"))
}

func TestBuilder_DefaultFallback(t *testing.T) {
	b := newProfileBuilder(t)
	e := entityJSON(t, b.Entity(decodeEvent(t, `{"messageId":"m-2","properties":{"personId":"P1"}}`)))

	require.Equal(t, EpochDefault, dig(t, e, "extSourceSystemAudit", "createdDate"))
	require.Equal(t, EpochDefault, dig(t, e, "extSourceSystemAudit", "lastUpdatedDate"))
	require.Equal(t, EpochDefault, dig(t, e, "_ibm", "b2bperson", "controlData", "personCreatedTS"))
	require.Equal(t, EpochDefault, dig(t, e, "_ibm", "b2bperson", "controlData", "personUpdatedTS"))
	require.Equal(t, "US", dig(t, e, "billingAddress", "countryCode"))
	require.Equal(t, "en_US", dig(t, e, "_ibm", "b2bperson", "indivDetails", "prefLanguage"))

	// Only the billing country is defaulted; the work address stays empty.
	require.Nil(t, dig(t, e, "workAddress", "countryCode"))
	// The _repo audit copy has no default.
	require.Nil(t, dig(t, e, "_repo", "createDate"))
}

func TestBuilder_UnparsableDateFallsBackToDefault(t *testing.T) {
	b := newProfileBuilder(t)
	e := entityJSON(t, b.Entity(decodeEvent(t, `{"messageId":"m","properties":{"dataSourceCreatedTS":"yesterday-ish"}}`)))

	require.Equal(t, EpochDefault, dig(t, e, "extSourceSystemAudit", "createdDate"))
	require.Nil(t, dig(t, e, "_repo", "createDate"))
}

func TestBuilder_LooseDateFormatsKeepTheirValue(t *testing.T) {
	b := newProfileBuilder(t)
	for _, raw := range []string{"08/06/2024", "2024/08/06 00:00:00", "Aug 6, 2024"} {
		t.Run(raw, func(t *testing.T) {
			e := entityJSON(t, b.Entity(decodeEvent(t,
				`{"messageId":"m","properties":{"dataSourceCreatedTS":"`+raw+`"}}`)))
			require.Equal(t, "2024-08-06T00:00:00.000Z", dig(t, e, "extSourceSystemAudit", "createdDate"))
		})
	}
}

func TestBuilder_NoPropertiesNeverFails(t *testing.T) {
	b := newProfileBuilder(t)

	require.NotPanics(t, func() {
		e := entityJSON(t, b.Entity(&v1.Event{MessageID: "m"}))

		accountKey := dig(t, e, "b2b", "accountKey").(map[string]interface{})
		require.Equal(t, map[string]interface{}{"sourceInstanceID": "CDIP-AEP", "sourceType": "CDIP"}, accountKey)
		require.Equal(t, map[string]interface{}{}, dig(t, e, "person", "name"), "emptied objects are kept")
		require.Nil(t, dig(t, e, "personID"))
	})
}

func TestStateCode(t *testing.T) {
	tests := []struct {
		in   interface{}
		want interface{}
	}{
		{"US-CA", "CA"},
		{"CA", "CA"},
		{"USCA1", "A1"},
		{"CAL", nil},
		{"", nil},
		{nil, nil},
		{12, "12"},
	}

	v := StateCode("stateProvince")
	for _, tt := range tests {
		got := v(Properties{"stateProvince": tt.in})
		require.Equal(t, tt.want, got, "input %#v", tt.in)
	}
	require.Nil(t, v(Properties{}))
}

func TestKey(t *testing.T) {
	v := Key("companyId")

	require.Equal(t, map[string]interface{}{
		"sourceID":         "",
		"sourceInstanceID": SourceInstanceID,
		"sourceKey":        "",
		"sourceType":       SourceType,
	}, v(Properties{"companyId": ""}))

	got := v(Properties{"companyId": json.Number("42")}).(map[string]interface{})
	require.Equal(t, "42", got["sourceID"])
	require.Equal(t, "42@CDIP-AEP.CDIP", got["sourceKey"])
}

func TestFlagVariants(t *testing.T) {
	require.Nil(t, Flag("f")(Properties{}))
	require.Equal(t, false, Flag("f")(Properties{"f": "no"}))
	require.Equal(t, false, Flag("f")(Properties{"f": false}))
	require.Nil(t, Flag("f")(Properties{"f": nil}))

	require.Nil(t, TruthyFlag("f")(Properties{"f": false}))
	require.Nil(t, TruthyFlag("f")(Properties{"f": 0.0}))
	require.Equal(t, false, TruthyFlag("f")(Properties{"f": "N"}))
	require.Equal(t, true, TruthyFlag("f")(Properties{"f": 1.0}))
}

func TestRegistry_DisabledKind(t *testing.T) {
	_, err := NewBuilder(NewRegistry(), KindExperienceEvent, testTarget)
	require.True(t, errors.Is(err, ErrKindDisabled))

	reg := NewRegistry()
	reg.Register(KindExperienceEvent, Strategy{Mapping: Mapping{{"timestamp", Const("t")}}})
	b, err := NewBuilder(reg, KindExperienceEvent, testTarget)
	require.NoError(t, err)
	require.Equal(t, KindExperienceEvent, b.Kind())
	require.Equal(t, Entity{"timestamp": "t"}, b.Entity(&v1.Event{MessageID: "m"}))
}

func TestBuildAll_PreservesOrder(t *testing.T) {
	b := newProfileBuilder(t)
	batch := v1.Batch{
		{MessageID: "a", Properties: map[string]interface{}{"personId": "1"}},
		{MessageID: "b", Properties: map[string]interface{}{"personId": "2"}},
		{MessageID: "c", Properties: map[string]interface{}{"personId": "3"}},
	}

	msgs := b.BuildAll(batch)
	require.Len(t, msgs, 3)
	for i, want := range []string{"1", "2", "3"} {
		require.Equal(t, want, msgs[i].Body.XdmEntity["personID"])
	}
}
