package xdm

// ProfileMapping is the B2B person profile field table. Target paths are
// relative to xdmEntity.
var ProfileMapping = Mapping{
	// _ibm.b2bperson
	{"_ibm.b2bperson.classification.bpFlag", Flag("bpFlag")},
	{"_ibm.b2bperson.classification.studentFlag", Flag("studentFlag")},
	{"_ibm.b2bperson.classification.ibmFlag", Flag("ibmFlag")},

	{"_ibm.b2bperson.contactDetails.email", Str("email")},

	{"_ibm.b2bperson.controlData.personCreatedTS", Date("personCreatedTS")},
	{"_ibm.b2bperson.controlData.personUpdatedTS", Date("personUpdatedTS")},
	{"_ibm.b2bperson.controlData.lastApplicationToMdm", Str("lastApplicationToUpdateMdm")},

	{"_ibm.b2bperson.identities.emailMediaId", Str("emailMediaId")},
	{"_ibm.b2bperson.identities.workPhoneMediaId", Str("workPhoneMediaId")},
	{"_ibm.b2bperson.identities.mobilePhoneMediaId", Str("mobilePhoneMediaId")},
	{"_ibm.b2bperson.identities.addressMediaId", Str("addressMediaId")},

	{"_ibm.b2bperson.indivDetails.prefLanguage", Str("prefLanguageCode")},
	{"_ibm.b2bperson.indivDetails.preferredNameAlternate", Str("personNameAlternative")},
	{"_ibm.b2bperson.indivDetails.katakanaName", Str("katakanaName")},

	{"_ibm.b2bperson.job.jobTitleUppercase", Str("jobTitleUppercase")},
	{"_ibm.b2bperson.job.jobTitleStandard", Str("jobTitleStandard")},
	{"_ibm.b2bperson.job.jobTitleEnglish", Str("jobTitleEnglish")},
	{"_ibm.b2bperson.job.jobRoleCode", Str("jobRoleCode")},
	{"_ibm.b2bperson.job.jobLevelCode", Str("jobLevelCode")},
	{"_ibm.b2bperson.job.jobClassCode", Str("jobClassCode")},
	{"_ibm.b2bperson.job.jobCategoryCode", Str("jobCategoryCode")},

	{"_ibm.b2bperson.responsescore.personConfidenceScore", Str("personContactTier")},
	{"_ibm.b2bperson.responsescore.personConfidenceDate", Date("personContactTierDate")},

	{"_ibm.b2bperson.dataquality.dqIndivNameFlg", TruthyFlag("dqIndivNameFlag")},
	{"_ibm.b2bperson.dataquality.dqAddressFlag", TruthyFlag("dqAddressFlag")},
	{"_ibm.b2bperson.dataquality.dqEmailFlag", TruthyFlag("dqEmailFlag")},
	{"_ibm.b2bperson.dataquality.dqWorkPhoneFlag", TruthyFlag("dqWorkPhoneFlag")},
	{"_ibm.b2bperson.dataquality.dqMobilePhoneFlag", TruthyFlag("dqMobilePhoneFlag")},
	{"_ibm.b2bperson.dataquality.dqJobTitleFlag", TruthyFlag("dqJobTitleFlag")},
	{"_ibm.b2bperson.dataquality.dqFlg", TruthyFlag("dqFlag")},

	{"_ibm.b2bperson.location.iotCode", Str("geographyCode")},
	{"_ibm.b2bperson.location.iotDescription", Str("geographyDescription")},
	{"_ibm.b2bperson.location.imtCode", Str("marketCode")},
	{"_ibm.b2bperson.location.imtDescription", Str("marketDescription")},
	{"_ibm.b2bperson.location.regionCode", Str("regionCode")},
	{"_ibm.b2bperson.location.regionDescription", Str("regionDescription")},

	// b2b identity
	{"b2b.accountKey", Key("companyId")},
	{"b2b.personKey", Key("personId")},
	{"b2b.personStatus", Str("personStatusCode")},

	{"billingAddress.countryCode", Str("countryCode")},

	{"extSourceSystemAudit.createdDate", Date("dataSourceCreatedTS")},
	{"extSourceSystemAudit.externalKey.sourceInstanceID", Str("dataSourceCode")},
	{"extSourceSystemAudit.lastUpdatedDate", Date("dataSourceUpdatedTS")},

	{"extendedWorkDetails.jobTitle", Str("jobTitle")},

	{"mobilePhone.number", Str("mobilePhoneNumber")},

	{"person.name.courtesyTitle", Str("courtesyTitle")},
	{"person.name.firstName", Str("firstName")},
	{"person.name.lastName", Str("lastName")},
	{"person.name.middleName", Str("middleName")},
	{"person.name.suffix", Str("nameSuffix")},

	{"personComponents", Objects(Mapping{
		{"sourceAccountKey", Key("companyId")},
	})},

	{"personID", Str("personId")},

	{"workAddress.city", Str("city")},
	{"workAddress.country", Str("country")},
	{"workAddress.countryCode", Str("countryCode")},
	{"workAddress.postalCode", Str("postalCode")},
	{"workAddress.street1", Str("address")},
	{"workAddress.street2", Str("addressLine2")},
	{"workAddress.street3", Str("addressLine3")},
	{"workAddress.state", StateCode("stateProvince")},

	{"workPhone.number", Str("workPhoneNumber")},

	{"_repo.createDate", Date("dataSourceCreatedTS")},
	{"_repo.modifyDate", Date("dataSourceUpdatedTS")},
}

// EpochDefault is substituted for required audit timestamps that arrive empty.
const EpochDefault = "1970-01-01T00:00:00.000Z"

// ProfileDefaults fills fields the partner schema requires on every profile.
var ProfileDefaults = []Default{
	{"extSourceSystemAudit.lastUpdatedDate", EpochDefault},
	{"extSourceSystemAudit.createdDate", EpochDefault},
	{"_ibm.b2bperson.controlData.personUpdatedTS", EpochDefault},
	{"_ibm.b2bperson.controlData.personCreatedTS", EpochDefault},
	{"billingAddress.countryCode", "US"},
	{"_ibm.b2bperson.indivDetails.prefLanguage", "en_US"},
}
