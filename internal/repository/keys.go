package repository

const (
	skMeta = "META"

	prefixUser = "USER#"
	prefixFile = "FILE#"
	prefixConv = "CONV#"
	prefixMsg  = "MSG#"

	indexGSI1 = "GSI1"
	indexGSI2 = "GSI2"

	// GSI1 partition holding every user record for admin listings.
	usersPartition = "USERS"

	gsi2VisibilitySystem = "VISIBILITY#system"
	gsi2PrefixOrg        = "ORG#"
	gsi2PrefixCompany    = "COMPANY#"
)

func userPK(userID string) string { return prefixUser + userID }
func filePK(fileID string) string { return prefixFile + fileID }
func convPK(convID string) string { return prefixConv + convID }

// msgSK yields chronological scan order within a conversation partition.
func msgSK(createdAt, messageID string) string {
	return prefixMsg + createdAt + "#" + messageID
}

func userGSI1SK(createdAt string) string { return prefixUser + createdAt }
func convGSI1SK(updatedAt string) string { return prefixConv + updatedAt }

// fileIndexSK is the sort key a file carries on both GSI1 and GSI2.
func fileIndexSK(uploadedAt string) string { return prefixFile + uploadedAt }
