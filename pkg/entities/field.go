package entities

// Field is a typed identifier for a trackable entity attribute. Using a
// closed set of fields keeps the completeness checklist and the merge
// policy reviewable in one place instead of scattering string keys.
type Field string

// Bank fields.
const (
	FieldBankName    Field = "bank_name"
	FieldCertID      Field = "cert_id"
	FieldRSSDID      Field = "rssd_id"
	FieldAssetRank   Field = "asset_rank"
	FieldTotalAssets Field = "total_assets" // in millions of dollars
	FieldHQCity      Field = "hq_city"
	FieldHQState     Field = "hq_state"
	FieldEstablished Field = "established"
	FieldWebsite     Field = "website"
	FieldSourceURL   Field = "source_url"
	FieldNotes       Field = "notes"
)

// Person fields.
const (
	FieldPersonName    Field = "name"
	FieldTitle         Field = "title"
	FieldDepartment    Field = "department"
	FieldProfileHandle Field = "profile_handle"
	FieldEmail         Field = "email"
	FieldPhone         Field = "phone"
)

// String returns the string representation of the field.
func (f Field) String() string {
	return string(f)
}

// BankFields returns every trackable bank field.
func BankFields() []Field {
	return []Field{
		FieldBankName, FieldCertID, FieldRSSDID, FieldAssetRank,
		FieldTotalAssets, FieldHQCity, FieldHQState, FieldEstablished,
		FieldWebsite, FieldSourceURL, FieldNotes,
	}
}

// PersonFields returns every trackable person field.
func PersonFields() []Field {
	return []Field{
		FieldPersonName, FieldTitle, FieldDepartment,
		FieldProfileHandle, FieldEmail, FieldPhone,
	}
}
