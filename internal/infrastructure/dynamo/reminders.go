package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/pinme-ledger/internal/domain"
)

// ReminderRepo stores reminders. PK: reminder_id.
//
// The sparse pending-remind_at-index only contains items that carry the
// `pending` attribute, which is set on create and removed by the same write
// that sets sent_at or cancelled_at. Querying it is the due-reminder scan.
type ReminderRepo struct {
	client     *dynamodb.Client
	tableName  string
	usersTable *UserRepo
}

func NewReminderRepo(client *dynamodb.Client, tableName, usersTableName string) *ReminderRepo {
	return &ReminderRepo{client: client, tableName: tableName, usersTable: NewUserRepo(client, usersTableName)}
}

type reminderItem struct {
	domain.Reminder
	Pending *int `dynamodbav:"pending,omitempty"`
}

func newReminderItem(r *domain.Reminder) reminderItem {
	item := reminderItem{Reminder: *r}
	if r.Pending() {
		one := 1
		item.Pending = &one
	}
	return item
}

var pendingName = map[string]string{"#p": fieldPending}

func (r *ReminderRepo) Create(ctx context.Context, rem *domain.Reminder) error {
	item, err := attributevalue.MarshalMap(newReminderItem(rem))
	if err != nil {
		return fmt.Errorf("marshal reminder: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(" + fieldReminderID + ")"),
	})
	return mapCondErr(err)
}

func (r *ReminderRepo) Get(ctx context.Context, reminderID string) (*domain.Reminder, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldReminderID, reminderID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("reminder not found: %w", domain.ErrNotFound)
	}
	return unmarshalReminder(out.Item)
}

func unmarshalReminder(item map[string]types.AttributeValue) (*domain.Reminder, error) {
	var ri reminderItem
	if err := attributevalue.UnmarshalMap(item, &ri); err != nil {
		return nil, err
	}
	return &ri.Reminder, nil
}

// byUserQuery queries the user_id-created_at GSI newest first.
func (r *ReminderRepo) byUserQuery(userID string, pendingOnly bool) *dynamodb.QueryInput {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexRemindersByUser),
		KeyConditionExpression: aws.String(fieldUserID + " = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if pendingOnly {
		input.FilterExpression = aws.String("attribute_exists(#p)")
		input.ExpressionAttributeNames = pendingName
	}
	return input
}

func (r *ReminderRepo) ListByUser(ctx context.Context, userID string, pendingOnly bool, limit int) ([]domain.Reminder, error) {
	out := []domain.Reminder{}
	err := queryAll(ctx, r.client, r.byUserQuery(userID, pendingOnly), func(items []map[string]types.AttributeValue) (bool, error) {
		for _, item := range items {
			rem, err := unmarshalReminder(item)
			if err != nil {
				return false, err
			}
			out = append(out, *rem)
			if limit > 0 && len(out) >= limit {
				return false, nil
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ReminderRepo) countByUser(ctx context.Context, userID string, pendingOnly bool) (int, error) {
	input := r.byUserQuery(userID, pendingOnly)
	input.Select = types.SelectCount
	p := dynamodb.NewQueryPaginator(r.client, input)
	n := 0
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		n += int(page.Count)
	}
	return n, nil
}

func (r *ReminderRepo) CountByUser(ctx context.Context, userID string) (total, pending int, err error) {
	if total, err = r.countByUser(ctx, userID, false); err != nil {
		return 0, 0, err
	}
	if pending, err = r.countByUser(ctx, userID, true); err != nil {
		return 0, 0, err
	}
	return total, pending, nil
}

// conditionalUpdate applies an update guarded by pendingCondition and
// returns the new item. A failed condition becomes ErrNotFound or ErrConflict.
func (r *ReminderRepo) conditionalUpdate(ctx context.Context, reminderID string, ue updateExpr) (*domain.Reminder, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldReminderID, reminderID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String(pendingCondition),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if isConditionFailed(err) {
		if _, getErr := r.Get(ctx, reminderID); getErr != nil {
			return nil, getErr
		}
		return nil, domain.ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return unmarshalReminder(out.Attributes)
}

func (r *ReminderRepo) UpdatePending(ctx context.Context, reminderID string, text *string, remindAt *time.Time) (*domain.Reminder, error) {
	updates := map[string]interface{}{}
	if text != nil {
		updates[fieldText] = *text
	}
	if remindAt != nil {
		updates[fieldRemindAt] = remindAt.Unix()
	}
	if len(updates) == 0 {
		rem, err := r.Get(ctx, reminderID)
		if err != nil {
			return nil, err
		}
		if !rem.Pending() {
			return nil, domain.ErrConflict
		}
		return rem, nil
	}
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return nil, err
	}
	return r.conditionalUpdate(ctx, reminderID, ue)
}

// finish sets sent_at or cancelled_at and drops the item from the pending index.
func (r *ReminderRepo) finish(ctx context.Context, reminderID, field string, now time.Time) (*domain.Reminder, error) {
	return r.conditionalUpdate(ctx, reminderID, updateExpr{
		Expr:   "SET #t = :now REMOVE #p",
		Names:  map[string]string{"#t": field, "#p": fieldPending},
		Values: map[string]types.AttributeValue{":now": unixAttr(now)},
	})
}

func (r *ReminderRepo) Cancel(ctx context.Context, reminderID string, now time.Time) (*domain.Reminder, error) {
	return r.finish(ctx, reminderID, fieldCancelledAt, now)
}

func (r *ReminderRepo) MarkSent(ctx context.Context, reminderID string, now time.Time) error {
	_, err := r.finish(ctx, reminderID, fieldSentAt, now)
	return err
}

// ListDue reads the sparse pending index, oldest remind_at first, and joins
// each reminder with its owner. GSI reads are eventually consistent, so
// callers re-read a candidate before acting on it.
func (r *ReminderRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.DueReminder, error) {
	input := &dynamodb.QueryInput{
		TableName:                aws.String(r.tableName),
		IndexName:                aws.String(indexPendingByRemindAt),
		KeyConditionExpression:   aws.String("#p = :one AND " + fieldRemindAt + " <= :now"),
		ExpressionAttributeNames: pendingName,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
			":now": unixAttr(now),
		},
		ScanIndexForward: aws.Bool(true),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}
	out, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, err
	}

	rems := make([]domain.Reminder, 0, len(out.Items))
	seen := map[string]bool{}
	var userIDs []string
	for _, item := range out.Items {
		rem, err := unmarshalReminder(item)
		if err != nil {
			return nil, err
		}
		rems = append(rems, *rem)
		if !seen[rem.UserID] {
			seen[rem.UserID] = true
			userIDs = append(userIDs, rem.UserID)
		}
	}
	if len(rems) == 0 {
		return nil, nil
	}
	users, err := r.usersTable.batchGet(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load reminder owners: %w", err)
	}

	due := make([]domain.DueReminder, 0, len(rems))
	for _, rem := range rems {
		u, ok := users[rem.UserID]
		if !ok {
			continue
		}
		due = append(due, domain.DueReminder{Reminder: rem, PhoneNumber: u.PhoneNumber, UserName: u.Name})
	}
	return due, nil
}

