package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	reeutil "github.com/MrBl4ck04/ReeUtil-sub000"
)

const (
	usersCollection     = "users"
	employeesCollection = "employees"
	rolesCollection     = "roles"
	modulesCollection   = "modules"
)

// Store implements reeutil.PrincipalStore.
type Store struct {
	users     *mongo.Collection
	employees *mongo.Collection
	roles     *mongo.Collection
	modules   *mongo.Collection
}

// Connect dials uri and pings the primary.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// New returns a Store on db.
func New(db *mongo.Database) *Store {
	return &Store{
		users:     db.Collection(usersCollection),
		employees: db.Collection(employeesCollection),
		roles:     db.Collection(rolesCollection),
		modules:   db.Collection(modulesCollection),
	}
}

// EnsureIndexes creates the unique email and name indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := func(field string) mongo.IndexModel {
		return mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true),
		}
	}
	for _, c := range []struct {
		coll  *mongo.Collection
		field string
	}{
		{s.users, "email"},
		{s.employees, "email"},
		{s.roles, "name"},
		{s.modules, "name"},
	} {
		if _, err := c.coll.Indexes().CreateOne(ctx, unique(c.field)); err != nil {
			return fmt.Errorf("index %s.%s: %w", c.coll.Name(), c.field, err)
		}
	}
	return nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// translate maps driver errors onto the engine taxonomy.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return reeutil.ErrPrincipalNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", reeutil.ErrDuplicateIdentifier, err)
	default:
		return err
	}
}

func (s *Store) findUser(ctx context.Context, filter bson.D) (*reeutil.User, error) {
	var d userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, translate(err)
	}
	return d.toUser(), nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*reeutil.User, error) {
	return s.findUser(ctx, bson.D{{Key: "email", Value: normalize(email)}})
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*reeutil.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, reeutil.ErrPrincipalNotFound
	}
	return s.findUser(ctx, bson.D{{Key: "_id", Value: oid}})
}

// employeePipeline matches one employee and joins its role and modules.
func employeePipeline(match bson.D) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$limit", Value: 1}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: rolesCollection},
			{Key: "localField", Value: "role"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "role_docs"},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: modulesCollection},
			{Key: "localField", Value: "permissions"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "module_docs"},
		}}},
	}
}

func (s *Store) findEmployee(ctx context.Context, match bson.D) (*reeutil.Employee, error) {
	cur, err := s.employees.Aggregate(ctx, employeePipeline(match))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return nil, err
		}
		return nil, reeutil.ErrPrincipalNotFound
	}
	var d employeeDoc
	if err := cur.Decode(&d); err != nil {
		return nil, err
	}
	return d.toEmployee(), nil
}

func (s *Store) FindEmployeeByEmail(ctx context.Context, email string) (*reeutil.Employee, error) {
	return s.findEmployee(ctx, bson.D{{Key: "email", Value: normalize(email)}})
}

func (s *Store) FindEmployeeByID(ctx context.Context, id string) (*reeutil.Employee, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, reeutil.ErrPrincipalNotFound
	}
	return s.findEmployee(ctx, bson.D{{Key: "_id", Value: oid}})
}

// lockoutUpdate sets the counter fields and clears blocked_at when unset.
func lockoutUpdate(state reeutil.LockoutState) bson.D {
	set := bson.D{
		{Key: "login_attempts", Value: state.LoginAttempts},
		{Key: "is_blocked", Value: state.IsBlocked},
	}
	if state.BlockedAt != nil {
		set = append(set, bson.E{Key: "blocked_at", Value: state.BlockedAt.UTC()})
		return bson.D{{Key: "$set", Value: set}}
	}
	return bson.D{
		{Key: "$set", Value: set},
		{Key: "$unset", Value: bson.D{{Key: "blocked_at", Value: ""}}},
	}
}

func (s *Store) SaveLockout(ctx context.Context, kind reeutil.Kind, id string, state reeutil.LockoutState) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return reeutil.ErrPrincipalNotFound
	}
	coll := s.users
	if kind == reeutil.KindEmployee {
		coll = s.employees
	}

	res, err := coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, lockoutUpdate(state))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return reeutil.ErrPrincipalNotFound
	}
	return nil
}

// CreateUser inserts u and returns its id.
func (s *Store) CreateUser(ctx context.Context, u reeutil.User) (string, error) {
	d := userDoc{
		ID:                bson.NewObjectID(),
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		Email:             normalize(u.Email),
		Role:              u.Role,
		PasswordHash:      u.PasswordHash,
		PasswordChangedAt: u.PasswordChangedAt,
		CreatedAt:         u.CreatedAt,
	}
	if d.Role == "" {
		d.Role = "user"
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if _, err := s.users.InsertOne(ctx, d); err != nil {
		return "", translate(err)
	}
	return d.ID.Hex(), nil
}

// CreateEmployee inserts e, creating its role and modules by name when they
// do not exist yet.
func (s *Store) CreateEmployee(ctx context.Context, e reeutil.Employee) (string, error) {
	d := employeeDoc{
		ID:                bson.NewObjectID(),
		FirstName:         e.FirstName,
		LastName:          e.LastName,
		Email:             normalize(e.Email),
		PasswordHash:      e.PasswordHash,
		Position:          e.Position,
		Permissions:       []bson.ObjectID{},
		PasswordChangedAt: e.PasswordChangedAt,
		CreatedAt:         e.CreatedAt,
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if e.Role != nil && e.Role.Name != "" {
		id, err := s.upsertByName(ctx, s.roles, e.Role.Name)
		if err != nil {
			return "", err
		}
		d.RoleID = &id
	}
	for _, m := range e.Permissions {
		id, err := s.upsertByName(ctx, s.modules, m)
		if err != nil {
			return "", err
		}
		d.Permissions = append(d.Permissions, id)
	}

	if _, err := s.employees.InsertOne(ctx, d); err != nil {
		return "", translate(err)
	}
	return d.ID.Hex(), nil
}

func (s *Store) upsertByName(ctx context.Context, coll *mongo.Collection, name string) (bson.ObjectID, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var out struct {
		ID bson.ObjectID `bson:"_id"`
	}
	err := coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "name", Value: name}},
		bson.D{{Key: "$setOnInsert", Value: bson.D{{Key: "name", Value: name}}}},
		opts,
	).Decode(&out)
	if err != nil {
		return bson.ObjectID{}, fmt.Errorf("%s %q: %w", coll.Name(), name, err)
	}
	return out.ID, nil
}

var _ reeutil.PrincipalStore = (*Store)(nil)
